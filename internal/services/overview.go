package services

import (
	"context"
	"fmt"
	"log/slog"

	"roadrich/internal/cache"
	"roadrich/internal/core"
	"roadrich/internal/storage"
)

// overviews reads per-month category totals, memoized per user and month.
// ExpenseService drops a user's entries on every write.
type overviews struct {
	store storage.ExpenseStore
	cache cache.Cache[core.MonthOverview]
}

func overviewKey(userID string, year, month int) string {
	return fmt.Sprintf("%s:%04d-%02d", userID, year, month)
}

func (o overviews) month(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	key := overviewKey(userID, year, month)
	if o.cache != nil {
		if ov, ok := o.cache.Get(key); ok {
			slog.DebugContext(ctx, "Overview cache hit", "key", key)
			return ov, nil
		}
	}

	from, to := core.MonthRange(year, month)
	list, err := o.store.ExpensesBetween(ctx, userID, from, to)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("load %04d-%02d expenses: %w", year, month, err)
	}
	ov := core.Overview(year, month, list)
	if o.cache != nil {
		o.cache.Set(key, ov)
	}
	return ov, nil
}

// expenseTotal sums the overview over expense-type categories only;
// savings deposits are not spending.
func expenseTotal(ov core.MonthOverview, cats []core.Category) core.Money {
	var total core.Money
	for _, c := range cats {
		if c.Type == core.CategoryExpense {
			total = total.Add(ov.AmountFor(c.ID))
		}
	}
	return total
}

func expenseCategoryIDs(cats []core.Category) map[string]core.Category {
	out := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		if c.Type == core.CategoryExpense {
			out[c.ID] = c
		}
	}
	return out
}

// percentOf returns part/whole as a whole percent, 0 when whole is not positive.
func percentOf(part, whole core.Money) int {
	if whole.Cents <= 0 {
		return 0
	}
	return core.RoundHalfUp(float64(part.Cents) / float64(whole.Cents) * 100)
}

func capPercent(p int) int {
	if p > 100 {
		return 100
	}
	return p
}

// allTime bounds a query over a user's whole history.
func allTime(today core.Date) (core.Date, core.Date) {
	return core.NewDate(1970, 1, 1), today
}
