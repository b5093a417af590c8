package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roadrich/internal/core"
	"roadrich/internal/storage/memory"
)

type published struct {
	kind    string
	id      string
	version int64
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishExpenseSync(_ context.Context, id string, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{"sync", id, version})
	return f.err
}

func (f *fakePublisher) PublishExpenseDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{"delete", id, 0})
	return f.err
}

func (f *fakePublisher) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

var errBroker = errors.New("broker down")

// Wednesday 18 March 2026, midday.
var testNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type fixture struct {
	store *memory.Store
	user  core.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := memory.New()
	u, err := s.CreateUser(context.Background(), core.User{Email: "lea@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	return fixture{store: s, user: u}
}

func (f fixture) profile(t *testing.T, incomeCents int64) {
	t.Helper()
	require.NoError(t, f.store.SaveProfile(context.Background(), core.Profile{
		UserID: f.user.ID, FirstName: "Léa", MonthlyIncome: core.Money{Cents: incomeCents},
	}))
}

func (f fixture) category(t *testing.T, name string, typ core.CategoryType, budgetCents int64) core.Category {
	t.Helper()
	c := core.Category{UserID: f.user.ID, Name: name, Icon: "•", Color: core.RGB{R: 0x9B, G: 0x5D, B: 0xE5}, Type: typ}
	if budgetCents > 0 {
		c.BudgetLimit = &core.Money{Cents: budgetCents}
	}
	created, err := f.store.CreateCategory(context.Background(), c)
	require.NoError(t, err)
	return created
}

func (f fixture) expense(t *testing.T, c core.Category, cents int64, date core.Date) core.Expense {
	t.Helper()
	e, err := f.store.CreateExpense(context.Background(), core.Expense{
		UserID: f.user.ID, CategoryID: c.ID, Amount: core.Money{Cents: cents}, Date: date,
	})
	require.NoError(t, err)
	return e
}

func d(year, month, day int) core.Date {
	return core.NewDate(year, month, day)
}
