package memory

import (
	"context"
	"sync"
	"testing"

	"roadrich/internal/core"
	"roadrich/internal/storage"
	"roadrich/internal/storage/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestBudgetLimitIsCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, core.User{Email: "a@example.com"})
	budget := core.Money{Cents: 100}
	c, err := s.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "x", Type: core.CategoryExpense, BudgetLimit: &budget})
	if err != nil {
		t.Fatal(err)
	}
	budget.Cents = 999

	got, _ := s.Category(ctx, u.ID, c.ID)
	if got.BudgetLimit.Cents != 100 {
		t.Fatalf("stored budget changed through caller pointer: %d", got.BudgetLimit.Cents)
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, core.User{Email: "a@example.com"})
	c, _ := s.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "x", Type: core.CategoryExpense})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateExpense(ctx, core.Expense{UserID: u.ID, CategoryID: c.ID, Amount: core.Money{Cents: int64(i)}, Date: core.NewDate(2026, 1, 1+i%28)})
			if err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.ExpensesBetween(ctx, u.ID, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	if len(got) != 50 {
		t.Fatalf("got %d expenses, want 50", len(got))
	}
}
