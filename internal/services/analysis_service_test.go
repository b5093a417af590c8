package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadrich/internal/core"
	"roadrich/internal/storage"
)

func analysisFixture(t *testing.T) (fixture, core.Category, core.Category) {
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	rent := f.category(t, "Loyer", core.CategoryExpense, 0)
	livret := f.category(t, "Livret A", core.CategorySavings, 0)

	f.expense(t, food, 5000, d(2025, 6, 1))
	f.expense(t, rent, 80000, d(2026, 2, 1))
	f.expense(t, food, 20000, d(2026, 2, 10))
	f.expense(t, rent, 80000, d(2026, 3, 1))
	f.expense(t, food, 30000, d(2026, 3, 12))
	f.expense(t, livret, 10000, d(2026, 3, 15))
	return f, food, rent
}

func TestAnalysisService_CurrentMonth(t *testing.T) {
	f, food, rent := analysisFixture(t)
	svc := NewAnalysisService(f.store, fixedClock(testNow))

	a, err := svc.Analyze(context.Background(), f.user.ID, "", "")
	require.NoError(t, err)

	assert.Equal(t, PeriodCurrent, a.Period)
	assert.Equal(t, "Mars 2026", a.Label)
	assert.Equal(t, "Février 2026", a.CompareLabel)
	assert.Equal(t, int64(110000), a.CurrentTotal.Cents)
	assert.Equal(t, int64(100000), a.PrevTotal.Cents)
	assert.Equal(t, int64(10000), a.Diff.Cents)
	assert.Equal(t, 10, a.DiffPercent.Percent)

	require.Len(t, a.Categories, 2)
	assert.Equal(t, rent.ID, a.Categories[0].ID, "largest first")
	assert.Equal(t, 73, a.Categories[0].Percent)
	assert.Equal(t, food.ID, a.Categories[1].ID)
	assert.Equal(t, 27, a.Categories[1].Percent)

	require.Len(t, a.Series, 31)
	assert.Equal(t, "1", a.Series[0].Label)
	assert.Equal(t, int64(80000), a.Series[0].Current.Cents)
	assert.Equal(t, int64(100000), a.Series[9].Previous.Cents)
	assert.Equal(t, int64(110000), a.Series[30].Current.Cents)
}

func TestAnalysisService_LastMonthAndYear(t *testing.T) {
	ctx := context.Background()
	f, _, _ := analysisFixture(t)
	svc := NewAnalysisService(f.store, fixedClock(testNow))

	last, err := svc.Analyze(ctx, f.user.ID, PeriodLast, "")
	require.NoError(t, err)
	assert.Equal(t, "Février 2026", last.Label)
	assert.Equal(t, "Janvier 2026", last.CompareLabel)
	assert.True(t, last.DiffPercent.New, "nothing to compare against")
	assert.Len(t, last.Series, 28)

	year, err := svc.Analyze(ctx, f.user.ID, PeriodYear, "")
	require.NoError(t, err)
	assert.Equal(t, "2026", year.Label)
	assert.Equal(t, "2025", year.CompareLabel)
	assert.Equal(t, int64(210000), year.CurrentTotal.Cents)
	assert.Equal(t, int64(5000), year.PrevTotal.Cents)
	require.Len(t, year.Series, 12)
	assert.Equal(t, "jan", year.Series[0].Label)
	assert.Equal(t, "fév", year.Series[1].Label)
	assert.Equal(t, int64(100000), year.Series[1].Current.Cents)
	assert.Equal(t, int64(210000), year.Series[11].Current.Cents)
	assert.Equal(t, int64(5000), year.Series[11].Previous.Cents)
}

func TestAnalysisService_CategoryFilter(t *testing.T) {
	f, food, _ := analysisFixture(t)
	svc := NewAnalysisService(f.store, fixedClock(testNow))

	a, err := svc.Analyze(context.Background(), f.user.ID, PeriodCurrent, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), a.CurrentTotal.Cents)
	assert.Equal(t, int64(20000), a.PrevTotal.Cents)
	assert.Equal(t, 50, a.DiffPercent.Percent)
	require.Len(t, a.Categories, 1)
	assert.Equal(t, 100, a.Categories[0].Percent)
}

func TestAnalysisService_Errors(t *testing.T) {
	ctx := context.Background()
	f, _, _ := analysisFixture(t)
	svc := NewAnalysisService(f.store, fixedClock(testNow))

	_, err := svc.Analyze(ctx, f.user.ID, "decade", "")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.Analyze(ctx, f.user.ID, PeriodCurrent, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
