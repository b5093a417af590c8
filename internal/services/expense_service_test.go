package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadrich/internal/cache"
	"roadrich/internal/core"
	"roadrich/internal/storage"
)

func TestExpenseService_CreatePublishesAndDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	pub := &fakePublisher{}
	svc := NewExpenseService(f.store, pub, nil, fixedClock(testNow))

	e, err := svc.CreateExpense(ctx, core.Expense{
		UserID:      f.user.ID,
		CategoryID:  food.ID,
		Amount:      core.Money{Cents: 1250},
		IsRecurring: true,
		Description: "  marché  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-18", e.Date.Key(), "missing date means today")
	assert.Equal(t, 18, e.RecurrenceDay)
	assert.Equal(t, "marché", e.Description)
	assert.Equal(t, []published{{"sync", e.ID, 1}}, pub.sent())
}

func TestExpenseService_ValidationStopsBeforeStorage(t *testing.T) {
	f := newFixture(t)
	pub := &fakePublisher{}
	svc := NewExpenseService(f.store, pub, nil, fixedClock(testNow))

	_, err := svc.CreateExpense(context.Background(), core.Expense{UserID: f.user.ID, Amount: core.Money{Cents: 100}})
	assert.ErrorIs(t, err, core.ErrEmptyCategory)
	assert.Empty(t, pub.sent())
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	svc := NewExpenseService(f.store, &fakePublisher{err: errBroker}, nil, fixedClock(testNow))

	e, err := svc.CreateExpense(ctx, core.Expense{UserID: f.user.ID, CategoryID: food.ID, Amount: core.Money{Cents: 100}, Date: d(2026, 3, 1)})
	require.NoError(t, err)

	pending, err := f.store.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "row stays pending for the mirror sweep")
	assert.Equal(t, e.ID, pending[0].ID)
}

func TestExpenseService_NilPublisher(t *testing.T) {
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	svc := NewExpenseService(f.store, nil, nil, nil)

	_, err := svc.CreateExpense(context.Background(), core.Expense{UserID: f.user.ID, CategoryID: food.ID, Amount: core.Money{Cents: 100}, Date: d(2026, 3, 1)})
	require.NoError(t, err)
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	pub := &fakePublisher{}
	svc := NewExpenseService(f.store, pub, nil, fixedClock(testNow))

	e, err := svc.CreateExpense(ctx, core.Expense{UserID: f.user.ID, CategoryID: food.ID, Amount: core.Money{Cents: 100}, Date: d(2026, 3, 2)})
	require.NoError(t, err)

	e.Amount = core.Money{Cents: 300}
	e.IsRecurring = false
	e.RecurrenceDay = 9
	require.NoError(t, svc.UpdateExpense(ctx, e))

	got, err := f.store.Expense(ctx, f.user.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Amount.Cents)
	assert.Zero(t, got.RecurrenceDay, "non-recurring expenses carry no renewal day")

	require.NoError(t, svc.DeleteExpense(ctx, f.user.ID, e.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, f.user.ID, e.ID), storage.ErrNotFound)

	assert.Equal(t, []published{
		{"sync", e.ID, 1},
		{"sync", e.ID, 2},
		{"delete", e.ID, 0},
	}, pub.sent())
}

func TestExpenseService_ListFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	rent := f.category(t, "Loyer", core.CategoryExpense, 0)
	f.expense(t, food, 100, d(2026, 3, 1))
	f.expense(t, rent, 80000, d(2026, 3, 2))
	f.expense(t, food, 200, d(2026, 3, 3))

	svc := NewExpenseService(f.store, nil, nil, nil)
	all, err := svc.ListExpenses(ctx, f.user.ID, d(2026, 3, 1), d(2026, 3, 31), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyFood, err := svc.ListExpenses(ctx, f.user.ID, d(2026, 3, 1), d(2026, 3, 31), food.ID)
	require.NoError(t, err)
	require.Len(t, onlyFood, 2)
	assert.Equal(t, int64(200), onlyFood[0].Amount.Cents, "newest first")
}

func TestExpenseService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &fakePublisher{}
	svc := NewExpenseService(f.store, pub, nil, nil)

	_, err := svc.CreateCategory(ctx, core.Category{UserID: f.user.ID, Name: "   "})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	zero := core.Money{}
	c, err := svc.CreateCategory(ctx, core.Category{UserID: f.user.ID, Name: " Sorties ", BudgetLimit: &zero})
	require.NoError(t, err)
	assert.Equal(t, "Sorties", c.Name)
	assert.Equal(t, core.CategoryExpense, c.Type, "type defaults to expense")
	assert.Nil(t, c.BudgetLimit, "a zero budget means no budget")

	c.Type = "loans"
	assert.ErrorIs(t, svc.UpdateCategory(ctx, c), core.ErrInvalidCategoryType)

	e := f.expense(t, c, 1500, d(2026, 3, 4))
	other := f.category(t, "Loyer", core.CategoryExpense, 0)
	f.expense(t, other, 1000, d(2026, 3, 4))

	require.NoError(t, svc.DeleteCategory(ctx, f.user.ID, c.ID))
	assert.Equal(t, []published{{"delete", e.ID, 0}}, pub.sent(), "only the category's expenses leave the mirror")

	cats, err := svc.Categories(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, other.ID, cats[0].ID)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, f.user.ID, c.ID), storage.ErrNotFound)
}

func TestExpenseService_WritesInvalidateOverviewCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	lru := cache.NewLRUCache[core.MonthOverview](10, time.Hour)
	lru.Set(overviewKey(f.user.ID, 2026, 3), core.MonthOverview{Year: 2026, Month: 3})
	lru.Set(overviewKey("someone-else", 2026, 3), core.MonthOverview{Year: 2026, Month: 3})

	svc := NewExpenseService(f.store, nil, lru, fixedClock(testNow))
	_, err := svc.CreateExpense(ctx, core.Expense{UserID: f.user.ID, CategoryID: food.ID, Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	_, ok := lru.Get(overviewKey(f.user.ID, 2026, 3))
	assert.False(t, ok)
	_, ok = lru.Get(overviewKey("someone-else", 2026, 3))
	assert.True(t, ok, "other users keep their cache")
}

func TestExpenseService_CategoryIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Courses", core.CategoryExpense, 0)
	svc := NewExpenseService(f.store, nil, nil, fixedClock(testNow))

	got, err := svc.Category(ctx, f.user.ID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Courses", got.Name)

	_, err = svc.Category(ctx, "someone-else", food.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
