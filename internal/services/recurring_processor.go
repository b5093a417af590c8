package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/storage"
)

// RecurringProcessor renews last month's recurring expenses into the
// current month.
type RecurringProcessor struct {
	store    storage.ExpenseStore
	expenses *ExpenseService
}

func NewRecurringProcessor(store storage.ExpenseStore, expenses *ExpenseService) *RecurringProcessor {
	return &RecurringProcessor{store: store, expenses: expenses}
}

// ProcessDueExpenses copies every recurring expense of the month before now
// whose renewal day has been reached, unless the current month already holds
// the copy. It returns how many expenses were created.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.expenses == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	year, month := now.Year(), int(now.Month())
	prevYear, prevMonth := core.PreviousMonth(year, month)
	prevFrom, prevTo := core.MonthRange(prevYear, prevMonth)
	curFrom, curTo := core.MonthRange(year, month)

	templates, err := p.store.RecurringBetween(ctx, prevFrom, prevTo)
	if err != nil {
		return 0, fmt.Errorf("failed to get recurring expenses: %w", err)
	}
	existing, err := p.store.RecurringBetween(ctx, curFrom, curTo)
	if err != nil {
		return 0, fmt.Errorf("failed to get renewed expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpRenew,
		"templates", len(templates),
		"processing_date", now.Format("2006-01-02"))

	renewed := make(map[string]bool, len(existing))
	for _, e := range existing {
		renewed[renewalKey(e)] = true
	}

	created := 0
	for _, tpl := range templates {
		day := tpl.RecurrenceDay
		if day < 1 {
			day = tpl.Date.Day()
		}
		target := min(day, core.DaysInMonth(year, month))
		if now.Day() < target {
			continue
		}

		key := renewalKey(tpl)
		if renewed[key] {
			continue
		}

		copy := core.Expense{
			UserID:        tpl.UserID,
			CategoryID:    tpl.CategoryID,
			Amount:        tpl.Amount,
			Date:          core.NewDate(year, month, target),
			IsRecurring:   true,
			RecurrenceDay: day,
			Description:   tpl.Description,
		}
		if _, err := p.expenses.CreateExpense(ctx, copy); err != nil {
			slog.ErrorContext(ctx, "Failed to renew recurring expense",
				"template_id", tpl.ID,
				"user_id", tpl.UserID,
				"error", err)
			continue
		}
		renewed[key] = true
		created++

		slog.InfoContext(ctx, "Renewed recurring expense",
			"template_id", tpl.ID,
			"user_id", tpl.UserID,
			"amount_cents", tpl.Amount.Cents,
			"day", target)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		applog.FieldOperation, applog.OpRenew,
		"created", created,
		"total_checked", len(templates))
	return created, nil
}

func renewalKey(e core.Expense) string {
	day := e.RecurrenceDay
	if day < 1 {
		day = e.Date.Day()
	}
	return fmt.Sprintf("%s|%s|%d|%d", e.UserID, e.CategoryID, e.Amount.Cents, day)
}
