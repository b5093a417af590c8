package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/storage"
)

// Invalidator drops cached per-user aggregates. *cache.LRUCache implements it.
type Invalidator interface {
	DeletePrefix(prefix string) int
}

// ExpenseService orchestrates expense and category writes across storage
// and the mirror queue.
type ExpenseService struct {
	store     storage.Store
	publisher MirrorPublisher
	cache     Invalidator
	clock     Clock
}

func NewExpenseService(store storage.Store, publisher MirrorPublisher, cache Invalidator, clock Clock) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher, cache: cache, clock: clock}
}

// Categories

func (s *ExpenseService) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	cats, err := s.store.Categories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Category returns one of the user's categories or storage.ErrNotFound.
func (s *ExpenseService) Category(ctx context.Context, userID, id string) (core.Category, error) {
	c, err := s.store.Category(ctx, userID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

func (s *ExpenseService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = normalizeCategory(c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *ExpenseService) UpdateCategory(ctx context.Context, c core.Category) error {
	c = normalizeCategory(c)
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	s.invalidate(c.UserID)
	return nil
}

// DeleteCategory removes the category together with its expenses and asks
// the mirror to drop each of them.
func (s *ExpenseService) DeleteCategory(ctx context.Context, userID, id string) error {
	if _, err := s.store.Category(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	doomed, err := s.store.ExpensesBetween(ctx, userID, core.NewDate(1970, 1, 1), core.NewDate(9999, 12, 31))
	if err != nil {
		return fmt.Errorf("list category expenses: %w", err)
	}
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(userID)

	for _, e := range doomed {
		if e.CategoryID == id {
			s.publishDelete(ctx, e.ID)
		}
	}
	return nil
}

func normalizeCategory(c core.Category) core.Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Icon = strings.TrimSpace(c.Icon)
	if c.Type == "" {
		c.Type = core.CategoryExpense
	}
	if c.BudgetLimit != nil && c.BudgetLimit.Cents == 0 {
		c.BudgetLimit = nil
	}
	return c
}

// Expenses

// ListExpenses returns the user's expenses in [from, to], newest first,
// optionally restricted to one category.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, from, to core.Date, categoryID string) ([]core.Expense, error) {
	list, err := s.store.ExpensesBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if categoryID == "" {
		return list, nil
	}
	out := list[:0]
	for _, e := range list {
		if e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateExpense saves an expense locally and publishes a mirror message.
// A missing date means today; a recurring expense without a day renews on
// the day of its date.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = s.normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidate(e.UserID)

	// version 1 for a new expense
	s.publishSync(ctx, created.ID, 1)
	return created, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	e = s.normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(e.UserID)

	rec, err := s.store.MirrorRecord(ctx, e.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read expense version", "id", e.ID, "error", err)
		return nil
	}
	s.publishSync(ctx, e.ID, rec.Version)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(userID)
	s.publishDelete(ctx, id)
	return nil
}

func (s *ExpenseService) normalizeExpense(e core.Expense) core.Expense {
	e.Description = strings.TrimSpace(e.Description)
	if e.Date.IsZero() {
		e.Date = core.DateOf(s.clock.now())
	}
	if e.IsRecurring && e.RecurrenceDay == 0 {
		e.RecurrenceDay = e.Date.Day()
	}
	if !e.IsRecurring {
		e.RecurrenceDay = 0
	}
	return e
}

func (s *ExpenseService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + ":")
	}
}

// Mirror publishing never fails the request: the row is saved and the
// mirror worker's startup sweep picks up anything that was not announced.

func (s *ExpenseService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return
	}
	if err := s.publisher.PublishExpenseSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", applog.FieldComponent, applog.ComponentExpense, "id", id, "version", version, "error", err)
	}
}

func (s *ExpenseService) publishDelete(ctx context.Context, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping delete message", "id", id)
		return
	}
	if err := s.publisher.PublishExpenseDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", applog.FieldComponent, applog.ComponentExpense, "id", id, "error", err)
	}
}
