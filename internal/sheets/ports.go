package sheets

import (
	"context"

	"roadrich/internal/core"
)

// Row is one expense as mirrored to the spreadsheet.
type Row struct {
	ID          string
	UserID      string
	Date        core.Date
	Category    string
	Description string
	Amount      core.Money
	Recurring   bool
	Version     int64
}

// Ports for outbound adapters.
type (
	// RowWriter writes or replaces the row for Row.ID.
	RowWriter interface {
		Upsert(ctx context.Context, r Row) (rowRef string, err error)
	}

	// RowDeleter removes the row for an expense. Deleting a missing row
	// is not an error.
	RowDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// RowLister returns every mirrored row in sheet order.
	RowLister interface {
		Rows(ctx context.Context) ([]Row, error)
	}

	Mirror interface {
		RowWriter
		RowDeleter
		RowLister
	}
)
