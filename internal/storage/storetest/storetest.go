// Package storetest holds behaviour checks shared by every storage.Store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadrich/internal/core"
	"roadrich/internal/storage"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("recurring", func(t *testing.T) { testRecurring(t, newStore(t)) })
	t.Run("mirror queue", func(t *testing.T) { testMirrorQueue(t, newStore(t)) })
}

func seedUser(t *testing.T, s storage.Store, email string) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func seedCategory(t *testing.T, s storage.Store, userID, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), core.Category{
		UserID: userID, Name: name, Icon: "🛒", Color: core.RGB{R: 0, G: 0xBB, B: 0xF9}, Type: typ,
	})
	require.NoError(t, err)
	return c
}

func seedExpense(t *testing.T, s storage.Store, userID, categoryID string, cents int64, date core.Date) core.Expense {
	t.Helper()
	e, err := s.CreateExpense(context.Background(), core.Expense{
		UserID: userID, CategoryID: categoryID, Amount: core.Money{Cents: cents}, Date: date,
	})
	require.NoError(t, err)
	return e
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, " Lea@Example.com ")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "lea@example.com", u.Email)

	got, err := s.UserByEmail(ctx, "LEA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = s.CreateUser(ctx, core.User{Email: "lea@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testProfiles(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "p@example.com")

	_, err := s.Profile(ctx, u.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SaveProfile(ctx, core.Profile{UserID: u.ID, FirstName: "Léa", MonthlyIncome: core.Money{Cents: 250000}}))
	require.NoError(t, s.SaveProfile(ctx, core.Profile{UserID: u.ID, FirstName: "Léa", MonthlyIncome: core.Money{Cents: 300000}}))

	p, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Léa", p.FirstName)
	assert.Equal(t, int64(300000), p.MonthlyIncome.Cents)
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "c@example.com")
	other := seedUser(t, s, "other@example.com")

	food := seedCategory(t, s, u.ID, "Courses", core.CategoryExpense)
	savings := seedCategory(t, s, u.ID, "Livret A", core.CategorySavings)
	seedCategory(t, s, other.ID, "Autre", core.CategoryExpense)

	cats, err := s.Categories(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, food.ID, cats[0].ID, "creation order")
	assert.Equal(t, core.CategorySavings, cats[1].Type)
	assert.Nil(t, cats[0].BudgetLimit)

	budget := core.Money{Cents: 40000}
	food.Name = "Alimentation"
	food.BudgetLimit = &budget
	require.NoError(t, s.UpdateCategory(ctx, food))

	got, err := s.Category(ctx, u.ID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alimentation", got.Name)
	require.NotNil(t, got.BudgetLimit)
	assert.Equal(t, int64(40000), got.BudgetLimit.Cents)
	assert.Equal(t, food.Color, got.Color)

	_, err = s.Category(ctx, other.ID, food.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "categories are scoped to their owner")

	seedExpense(t, s, u.ID, savings.ID, 1000, core.NewDate(2026, 1, 5))
	require.NoError(t, s.DeleteCategory(ctx, u.ID, savings.ID))
	left, err := s.ExpensesBetween(ctx, u.ID, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, left, "deleting a category removes its expenses")

	assert.ErrorIs(t, s.DeleteCategory(ctx, u.ID, savings.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateCategory(ctx, core.Category{ID: "missing", UserID: u.ID, Name: "x", Type: core.CategoryExpense}), storage.ErrNotFound)
}

func testExpenses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "e@example.com")
	other := seedUser(t, s, "e2@example.com")
	food := seedCategory(t, s, u.ID, "Courses", core.CategoryExpense)
	foreign := seedCategory(t, s, other.ID, "Autre", core.CategoryExpense)

	early := seedExpense(t, s, u.ID, food.ID, 1200, core.NewDate(2026, 1, 3))
	late := seedExpense(t, s, u.ID, food.ID, 800, core.NewDate(2026, 1, 20))
	seedExpense(t, s, u.ID, food.ID, 500, core.NewDate(2026, 2, 1))

	got, err := s.ExpensesBetween(ctx, u.ID, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, late.ID, got[0].ID, "newest first")
	assert.Equal(t, early.ID, got[1].ID)
	assert.Equal(t, "2026-01-03", got[1].Date.Key())

	_, err = s.CreateExpense(ctx, core.Expense{UserID: u.ID, CategoryID: foreign.ID, Amount: core.Money{Cents: 1}, Date: core.NewDate(2026, 1, 1)})
	assert.ErrorIs(t, err, storage.ErrNotFound, "expense must use one of the owner's categories")

	early.Amount = core.Money{Cents: 1500}
	early.Description = "marché"
	early.IsRecurring = true
	early.RecurrenceDay = 3
	require.NoError(t, s.UpdateExpense(ctx, early))

	e, err := s.Expense(ctx, u.ID, early.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), e.Amount.Cents)
	assert.Equal(t, "marché", e.Description)
	assert.True(t, e.IsRecurring)
	assert.Equal(t, 3, e.RecurrenceDay)

	_, err = s.Expense(ctx, other.ID, early.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteExpense(ctx, other.ID, early.ID), storage.ErrNotFound)

	require.NoError(t, s.DeleteExpense(ctx, u.ID, early.ID))
	_, err = s.Expense(ctx, u.ID, early.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRecurring(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	ca := seedCategory(t, s, a.ID, "Loyer", core.CategoryExpense)
	cb := seedCategory(t, s, b.ID, "Loyer", core.CategoryExpense)

	for _, e := range []core.Expense{
		{UserID: a.ID, CategoryID: ca.ID, Amount: core.Money{Cents: 80000}, Date: core.NewDate(2026, 1, 1), IsRecurring: true, RecurrenceDay: 1},
		{UserID: b.ID, CategoryID: cb.ID, Amount: core.Money{Cents: 60000}, Date: core.NewDate(2026, 1, 5), IsRecurring: true, RecurrenceDay: 5},
		{UserID: a.ID, CategoryID: ca.ID, Amount: core.Money{Cents: 1000}, Date: core.NewDate(2026, 1, 9)},
		{UserID: a.ID, CategoryID: ca.ID, Amount: core.Money{Cents: 80000}, Date: core.NewDate(2025, 12, 1), IsRecurring: true, RecurrenceDay: 1},
	} {
		_, err := s.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	got, err := s.RecurringBetween(ctx, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.True(t, e.IsRecurring)
		assert.Equal(t, 2026, e.Date.Year())
	}
}

func testMirrorQueue(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "m@example.com")
	food := seedCategory(t, s, u.ID, "Courses", core.CategoryExpense)
	first := seedExpense(t, s, u.ID, food.ID, 100, core.NewDate(2026, 1, 1))
	second := seedExpense(t, s, u.ID, food.ID, 200, core.NewDate(2026, 1, 2))

	pending, err := s.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, int64(1), pending[0].Version)

	rec, err := s.MirrorRecord(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Courses", rec.CategoryName)
	assert.Equal(t, storage.MirrorPending, rec.Status)

	require.NoError(t, s.MarkMirrored(ctx, first.ID, 1))
	require.NoError(t, s.MarkMirrorError(ctx, second.ID))

	pending, err = s.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "errored rows stay queued for retry")
	assert.Equal(t, second.ID, pending[0].ID)

	first.Amount = core.Money{Cents: 150}
	require.NoError(t, s.UpdateExpense(ctx, first))
	require.NoError(t, s.MarkMirrored(ctx, first.ID, 1))
	rec, err = s.MirrorRecord(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.Equal(t, storage.MirrorPending, rec.Status, "a stale version must not mark a newer edit as synced")

	pending, err = s.PendingMirror(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = s.MirrorRecord(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
