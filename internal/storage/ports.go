// Package storage persists users, profiles, categories and expenses.
// SQLiteRepository is the durable implementation; the memory subpackage
// backs tests and DATA_BACKEND=memory.
package storage

import (
	"context"
	"errors"
	"time"

	"roadrich/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Mirror states of an expense row.
const (
	MirrorPending = "pending"
	MirrorSynced  = "synced"
	MirrorError   = "error"
)

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id string) (core.User, error)
	}

	ProfileStore interface {
		// SaveProfile creates or replaces the profile of p.UserID.
		SaveProfile(ctx context.Context, p core.Profile) error
		Profile(ctx context.Context, userID string) (core.Profile, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory also removes the category's expenses.
		DeleteCategory(ctx context.Context, userID, id string) error
		Category(ctx context.Context, userID, id string) (core.Category, error)
		// Categories returns the user's categories in creation order.
		Categories(ctx context.Context, userID string) ([]core.Category, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, userID, id string) error
		Expense(ctx context.Context, userID, id string) (core.Expense, error)
		// ExpensesBetween returns expenses dated within [from, to], newest first.
		ExpensesBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Expense, error)
		// RecurringBetween returns recurring expenses of every user within [from, to].
		RecurringBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error)
	}

	// MirrorQueue tracks which expenses still need to reach the spreadsheet mirror.
	MirrorQueue interface {
		PendingMirror(ctx context.Context, limit int) ([]PendingMirror, error)
		MirrorRecord(ctx context.Context, id string) (MirrorRecord, error)
		MarkMirrored(ctx context.Context, id string, version int64) error
		MarkMirrorError(ctx context.Context, id string) error
	}

	Store interface {
		UserStore
		ProfileStore
		CategoryStore
		ExpenseStore
		MirrorQueue
		Ping(ctx context.Context) error
		Close() error
	}
)

// PendingMirror is the minimal data needed to enqueue a mirror message.
type PendingMirror struct {
	ID        string
	Version   int64
	UpdatedAt time.Time
}

// MirrorRecord is an expense as the mirror writes it.
type MirrorRecord struct {
	Expense      core.Expense
	CategoryName string
	Version      int64
	Status       string
}
