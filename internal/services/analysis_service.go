package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"roadrich/internal/core"
	"roadrich/internal/report"
	"roadrich/internal/storage"
)

// Analysis periods.
const (
	PeriodCurrent = "current" // this month against last month
	PeriodLast    = "last"    // last month against the month before
	PeriodYear    = "year"    // this year against last year
)

type AnalysisCategory struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Icon    string     `json:"icon"`
	Color   core.RGB   `json:"color"`
	Amount  core.Money `json:"amount"`
	Percent int        `json:"percent"`
}

// SeriesPoint is a cumulative total at one day (month periods) or month
// (year period) of both the analysed and the comparison period.
type SeriesPoint struct {
	Label    string     `json:"label"`
	Current  core.Money `json:"current"`
	Previous core.Money `json:"previous"`
}

type Analysis struct {
	Period       string             `json:"period"`
	Label        string             `json:"label"`
	CompareLabel string             `json:"compareLabel"`
	CategoryID   string             `json:"categoryId,omitempty"`
	Categories   []AnalysisCategory `json:"categories"`
	Series       []SeriesPoint      `json:"series"`
	CurrentTotal core.Money         `json:"currentTotal"`
	PrevTotal    core.Money         `json:"prevTotal"`
	Diff         core.Money         `json:"diff"`
	DiffPercent  report.Variation   `json:"diffPercent"`
}

type AnalysisService struct {
	store storage.Store
	clock Clock
}

func NewAnalysisService(store storage.Store, clock Clock) *AnalysisService {
	return &AnalysisService{store: store, clock: clock}
}

type window struct {
	from, to core.Date
	label    string
}

func (s *AnalysisService) windows(period string) (window, window, error) {
	today := core.DateOf(s.clock.now())
	year, month := today.Year(), today.Month()

	monthWindow := func(y, m int) window {
		from, to := core.MonthRange(y, m)
		return window{from: from, to: to, label: core.MonthLabel(y, m)}
	}

	switch period {
	case "", PeriodCurrent:
		py, pm := core.PreviousMonth(year, month)
		return monthWindow(year, month), monthWindow(py, pm), nil
	case PeriodLast:
		py, pm := core.PreviousMonth(year, month)
		ppy, ppm := core.PreviousMonth(py, pm)
		return monthWindow(py, pm), monthWindow(ppy, ppm), nil
	case PeriodYear:
		cur := window{from: core.NewDate(year, 1, 1), to: core.NewDate(year, 12, 31), label: strconv.Itoa(year)}
		prev := window{from: core.NewDate(year-1, 1, 1), to: core.NewDate(year-1, 12, 31), label: strconv.Itoa(year - 1)}
		return cur, prev, nil
	default:
		return window{}, window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
}

// Analyze compares spending in period against the preceding one. With a
// categoryID only that category counts; otherwise every expense-type
// category does.
func (s *AnalysisService) Analyze(ctx context.Context, userID, period, categoryID string) (Analysis, error) {
	cur, prev, err := s.windows(period)
	if err != nil {
		return Analysis{}, err
	}
	if period == "" {
		period = PeriodCurrent
	}

	var (
		cats              []core.Category
		curList, prevList []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
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
		curList, err = s.store.ExpensesBetween(gctx, userID, cur.from, cur.to)
		if err != nil {
			return fmt.Errorf("load %s expenses: %w", cur.label, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prevList, err = s.store.ExpensesBetween(gctx, userID, prev.from, prev.to)
		if err != nil {
			return fmt.Errorf("load %s expenses: %w", prev.label, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Analysis{}, err
	}

	counted := map[string]core.Category{}
	for _, c := range cats {
		if categoryID != "" {
			if c.ID == categoryID {
				counted[c.ID] = c
			}
		} else if c.Type == core.CategoryExpense {
			counted[c.ID] = c
		}
	}
	if categoryID != "" && len(counted) == 0 {
		return Analysis{}, fmt.Errorf("category %s: %w", categoryID, storage.ErrNotFound)
	}
	curList = onlyCategories(curList, counted)
	prevList = onlyCategories(prevList, counted)

	a := Analysis{
		Period:       period,
		Label:        cur.label,
		CompareLabel: prev.label,
		CategoryID:   categoryID,
		CurrentTotal: sumAmounts(curList),
		PrevTotal:    sumAmounts(prevList),
	}
	a.Diff = a.CurrentTotal.Sub(a.PrevTotal)
	a.DiffPercent = report.VariationPercent(a.CurrentTotal, a.PrevTotal)
	a.Categories = categoryShares(cats, curList, a.CurrentTotal)

	if period == PeriodYear {
		a.Series = monthlySeries(curList, prevList)
	} else {
		a.Series = dailySeries(curList, prevList, core.DaysInMonth(cur.from.Year(), cur.from.Month()))
	}
	return a, nil
}

func onlyCategories(list []core.Expense, keep map[string]core.Category) []core.Expense {
	out := make([]core.Expense, 0, len(list))
	for _, e := range list {
		if _, ok := keep[e.CategoryID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func sumAmounts(list []core.Expense) core.Money {
	var total core.Money
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total
}

// categoryShares lists categories with spending, largest first.
func categoryShares(cats []core.Category, list []core.Expense, total core.Money) []AnalysisCategory {
	ov := core.Overview(0, 0, list)
	out := []AnalysisCategory{}
	for _, c := range cats {
		amount := ov.AmountFor(c.ID)
		if amount.Cents <= 0 {
			continue
		}
		out = append(out, AnalysisCategory{
			ID:      c.ID,
			Name:    c.Name,
			Icon:    c.Icon,
			Color:   c.Color,
			Amount:  amount,
			Percent: percentOf(amount, total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out
}

func dailySeries(cur, prev []core.Expense, days int) []SeriesPoint {
	days = min(days, 31)
	curDay := make([]core.Money, days+1)
	prevDay := make([]core.Money, days+1)
	for _, e := range cur {
		if d := e.Date.Day(); d <= days {
			curDay[d] = curDay[d].Add(e.Amount)
		}
	}
	for _, e := range prev {
		if d := e.Date.Day(); d <= days {
			prevDay[d] = prevDay[d].Add(e.Amount)
		}
	}
	return cumulative(days, curDay, prevDay, strconv.Itoa)
}

func monthlySeries(cur, prev []core.Expense) []SeriesPoint {
	curMonth := make([]core.Money, 13)
	prevMonth := make([]core.Money, 13)
	for _, e := range cur {
		curMonth[e.Date.Month()] = curMonth[e.Date.Month()].Add(e.Amount)
	}
	for _, e := range prev {
		prevMonth[e.Date.Month()] = prevMonth[e.Date.Month()].Add(e.Amount)
	}
	return cumulative(12, curMonth, prevMonth, func(m int) string {
		return string([]rune(core.FrenchMonthName(m))[:3])
	})
}

// cumulative runs totals over buckets 1..n.
func cumulative(n int, cur, prev []core.Money, label func(int) string) []SeriesPoint {
	out := make([]SeriesPoint, 0, n)
	var c, p core.Money
	for i := 1; i <= n; i++ {
		c = c.Add(cur[i])
		p = p.Add(prev[i])
		out = append(out, SeriesPoint{Label: label(i), Current: c, Previous: p})
	}
	return out
}
