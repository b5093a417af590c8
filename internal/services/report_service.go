package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"roadrich/internal/core"
	"roadrich/internal/report"
	"roadrich/internal/storage"
)

// ReportService assembles a month of data and renders the PDF report.
type ReportService struct {
	store    storage.Store
	composer *report.Composer
}

func NewReportService(store storage.Store, composer *report.Composer) *ReportService {
	return &ReportService{store: store, composer: composer}
}

// BuildInput gathers the four reads a report needs in parallel. Totals
// cover expense-type categories only; every such category is listed, even
// at zero, so rank deltas see the full previous month.
func (s *ReportService) BuildInput(ctx context.Context, userID string, year, month int) (report.Input, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return report.Input{}, err
	}
	prevYear, prevMonth := core.PreviousMonth(year, month)
	curFrom, curTo := core.MonthRange(year, month)
	prevFrom, prevTo := core.MonthRange(prevYear, prevMonth)

	var (
		income   core.Money
		cats     []core.Category
		cur, old []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.Profile(gctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		income = p.MonthlyIncome
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.Categories(gctx, userID)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cur, err = s.store.ExpensesBetween(gctx, userID, curFrom, curTo)
		if err != nil {
			return fmt.Errorf("load current expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		old, err = s.store.ExpensesBetween(gctx, userID, prevFrom, prevTo)
		if err != nil {
			return fmt.Errorf("load previous expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}

	spending := expenseCategoryIDs(cats)
	cur = onlyCategories(cur, spending)
	old = onlyCategories(old, spending)
	curOv := core.Overview(year, month, cur)
	oldOv := core.Overview(prevYear, prevMonth, old)

	in := report.Input{
		MonthName:         core.MonthLabel(year, month),
		TotalExpenses:     curOv.Total,
		PrevTotalExpenses: oldOv.Total,
		Income:            income,
		Categories:        []report.CategoryTotal{},
		PrevCategories:    []report.CategoryTotal{},
		Expenses:          points(cur),
		PrevExpenses:      points(old),
	}
	for _, c := range cats {
		if c.Type != core.CategoryExpense {
			continue
		}
		in.Categories = append(in.Categories, categoryTotal(c, curOv.AmountFor(c.ID)))
		in.PrevCategories = append(in.PrevCategories, categoryTotal(c, oldOv.AmountFor(c.ID)))
	}
	return in, nil
}

func categoryTotal(c core.Category, total core.Money) report.CategoryTotal {
	return report.CategoryTotal{
		ID:          c.ID,
		Name:        c.Name,
		Icon:        c.Icon,
		Color:       c.Color,
		Type:        c.Type,
		BudgetLimit: c.BudgetLimit,
		Total:       total,
	}
}

func points(list []core.Expense) []report.ExpensePoint {
	out := make([]report.ExpensePoint, 0, len(list))
	for _, e := range list {
		out = append(out, report.ExpensePoint{Date: e.Date.Key(), Amount: e.Amount})
	}
	return out
}

// MonthlyReport renders the report for year/month. Backend failures come
// back wrapping report.ErrBackendUnavailable.
func (s *ReportService) MonthlyReport(ctx context.Context, userID string, year, month int) (report.Document, report.Summary, error) {
	start := time.Now()
	in, err := s.BuildInput(ctx, userID, year, month)
	if err != nil {
		return report.Document{}, report.Summary{}, fmt.Errorf("build report input: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report.Document{}, report.Summary{}, err
	}

	doc, sum, err := s.composer.Generate(ctx, in)
	if err != nil {
		return report.Document{}, sum, fmt.Errorf("generate report: %w", err)
	}

	slog.InfoContext(ctx, "Monthly report generated",
		"user_id", userID,
		"month", in.MonthName,
		"filename", doc.Filename,
		"bytes", len(doc.Bytes),
		"duration", time.Since(start))
	return doc, sum, nil
}
