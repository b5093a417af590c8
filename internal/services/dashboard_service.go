package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"roadrich/internal/cache"
	"roadrich/internal/core"
	"roadrich/internal/report"
	"roadrich/internal/storage"
)

// Budget status levels shared by the progress bar and category gauges.
const (
	StatusSafe    = "safe"
	StatusWarning = "warning"
	StatusDanger  = "danger"
)

const (
	warningPercent = 70
	dangerPercent  = 90
	recentLimit    = 5
	weekDays       = 7
	minBarHeight   = 10
)

var weekdayLabels = [...]string{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"}

type CategoryGauge struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Icon      string      `json:"icon"`
	Color     core.RGB    `json:"color"`
	Spent     core.Money  `json:"spent"`
	Budget    *core.Money `json:"budget,omitempty"`
	Remaining *core.Money `json:"remaining,omitempty"`
	Percent   int         `json:"percent"`
	Status    string      `json:"status"`
}

type SavingsCard struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Icon        string     `json:"icon"`
	Color       core.RGB   `json:"color"`
	Balance     core.Money `json:"balance"`
	LastDeposit *core.Date `json:"lastDeposit,omitempty"`
	LastAmount  core.Money `json:"lastAmount"`
}

type DayBar struct {
	Date          core.Date  `json:"date"`
	Label         string     `json:"label"`
	Amount        core.Money `json:"amount"`
	HeightPercent int        `json:"heightPercent"`
	Today         bool       `json:"today"`
}

type TreemapTile struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Icon      string           `json:"icon"`
	Color     core.RGB         `json:"color"`
	Amount    core.Money       `json:"amount"`
	Percent   int              `json:"percent"`
	Variation report.Variation `json:"variation"`
	Class     string           `json:"class"`
}

// Dashboard is the home screen for one month.
type Dashboard struct {
	FirstName       string          `json:"firstName"`
	MonthLabel      string          `json:"monthLabel"`
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	Income          core.Money      `json:"income"`
	TotalExpenses   core.Money      `json:"totalExpenses"`
	RemainingBudget core.Money      `json:"remainingBudget"`
	SpentPercent    int             `json:"spentPercent"`
	Progress        string          `json:"progress"`
	TodayExpenses   core.Money      `json:"todayExpenses"`
	Categories      []CategoryGauge `json:"categories"`
	Savings         []SavingsCard   `json:"savings"`
	Week            []DayBar        `json:"week"`
	Treemap         []TreemapTile   `json:"treemap"`
	Recent          []core.Expense  `json:"recent"`
}

type DashboardService struct {
	profiles   storage.ProfileStore
	categories storage.CategoryStore
	expenses   storage.ExpenseStore
	overviews  overviews
	clock      Clock
}

func NewDashboardService(store storage.Store, cache cache.Cache[core.MonthOverview], clock Clock) *DashboardService {
	return &DashboardService{
		profiles:   store,
		categories: store,
		expenses:   store,
		overviews:  overviews{store: store, cache: cache},
		clock:      clock,
	}
}

// Dashboard builds the current month's dashboard for userID.
func (s *DashboardService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	now := s.clock.now()
	today := core.DateOf(now)
	year, month := today.Year(), today.Month()
	prevYear, prevMonth := core.PreviousMonth(year, month)

	var (
		profile *core.Profile
		cats    []core.Category
		cur     core.MonthOverview
		prev    core.MonthOverview
		history []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.Profile(gctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		profile = &p
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.categories.Categories(gctx, userID)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cur, err = s.overviews.month(gctx, userID, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.overviews.month(gctx, userID, prevYear, prevMonth)
		return err
	})
	g.Go(func() error {
		from, to := allTime(today)
		var err error
		history, err = s.expenses.ExpensesBetween(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		MonthLabel: core.MonthLabel(year, month),
		Year:       year,
		Month:      month,
	}
	if profile != nil {
		d.FirstName = profile.FirstName
		d.Income = profile.MonthlyIncome
	}

	d.TotalExpenses = expenseTotal(cur, cats)
	d.RemainingBudget = d.Income.Sub(d.TotalExpenses)
	d.SpentPercent = capPercent(percentOf(d.TotalExpenses, d.Income))
	d.Progress = budgetStatus(d.SpentPercent)

	d.Categories = gauges(cats, cur)
	d.Savings = savingsCards(cats, history)
	d.Treemap = treemap(cats, cur, prev, d.TotalExpenses)

	spending := expenseCategoryIDs(cats)
	d.Week, d.TodayExpenses = weekFlow(history, spending, today)

	d.Recent = []core.Expense{}
	for _, e := range history {
		if len(d.Recent) == recentLimit {
			break
		}
		d.Recent = append(d.Recent, e)
	}
	return d, nil
}

func budgetStatus(percent int) string {
	switch {
	case percent >= dangerPercent:
		return StatusDanger
	case percent >= warningPercent:
		return StatusWarning
	default:
		return StatusSafe
	}
}

func gauges(cats []core.Category, cur core.MonthOverview) []CategoryGauge {
	out := []CategoryGauge{}
	for _, c := range cats {
		if c.Type != core.CategoryExpense {
			continue
		}
		g := CategoryGauge{
			ID:     c.ID,
			Name:   c.Name,
			Icon:   c.Icon,
			Color:  c.Color,
			Spent:  cur.AmountFor(c.ID),
			Status: StatusSafe,
		}
		if c.BudgetLimit != nil && c.BudgetLimit.Cents > 0 {
			budget := *c.BudgetLimit
			remaining := budget.Sub(g.Spent)
			g.Budget = &budget
			g.Remaining = &remaining
			g.Percent = capPercent(percentOf(g.Spent, budget))
			g.Status = budgetStatus(g.Percent)
		}
		out = append(out, g)
	}
	return out
}

// savingsCards totals every deposit ever made per savings category. history
// is newest first, so the first match is the last deposit.
func savingsCards(cats []core.Category, history []core.Expense) []SavingsCard {
	index := map[string]int{}
	out := []SavingsCard{}
	for _, c := range cats {
		if c.Type != core.CategorySavings {
			continue
		}
		index[c.ID] = len(out)
		out = append(out, SavingsCard{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color})
	}
	for _, e := range history {
		i, ok := index[e.CategoryID]
		if !ok {
			continue
		}
		card := &out[i]
		card.Balance = card.Balance.Add(e.Amount)
		if card.LastDeposit == nil {
			d := e.Date
			card.LastDeposit = &d
			card.LastAmount = e.Amount
		}
	}
	return out
}

// weekFlow returns spending for the seven days ending today, oldest first,
// and today's total.
func weekFlow(history []core.Expense, spending map[string]core.Category, today core.Date) ([]DayBar, core.Money) {
	bars := make([]DayBar, weekDays)
	index := make(map[string]int, weekDays)
	for i := range bars {
		day := core.Date{Time: today.AddDate(0, 0, i-(weekDays-1))}
		bars[i] = DayBar{Date: day, Label: weekdayLabels[day.Weekday()]}
		index[day.Key()] = i
	}
	bars[weekDays-1].Label = "Auj."
	bars[weekDays-1].Today = true

	for _, e := range history {
		if _, ok := spending[e.CategoryID]; !ok {
			continue
		}
		if i, ok := index[e.Date.Key()]; ok {
			bars[i].Amount = bars[i].Amount.Add(e.Amount)
		}
	}

	var peak core.Money
	for _, b := range bars {
		if b.Amount.Cents > peak.Cents {
			peak = b.Amount
		}
	}
	for i := range bars {
		h := minBarHeight
		if peak.Cents > 0 {
			h = max(minBarHeight, percentOf(bars[i].Amount, peak))
		}
		bars[i].HeightPercent = h
	}
	return bars, bars[weekDays-1].Amount
}

func treemap(cats []core.Category, cur, prev core.MonthOverview, total core.Money) []TreemapTile {
	out := []TreemapTile{}
	for _, c := range cats {
		if c.Type != core.CategoryExpense {
			continue
		}
		amount := cur.AmountFor(c.ID)
		if amount.Cents <= 0 {
			continue
		}
		before := prev.AmountFor(c.ID)
		v := report.VariationPercent(amount, before)
		out = append(out, TreemapTile{
			ID:        c.ID,
			Name:      c.Name,
			Icon:      c.Icon,
			Color:     c.Color,
			Amount:    amount,
			Percent:   percentOf(amount, total),
			Variation: v,
			Class:     variationClass(v),
		})
	}
	return out
}

func variationClass(v report.Variation) string {
	if v.New {
		return "neutral"
	}
	p := v.Percent
	switch {
	case p <= -30:
		return "saving-high"
	case p <= -15:
		return "saving-medium"
	case p < 0:
		return "saving-low"
	case p >= 30:
		return "spending-high"
	case p >= 15:
		return "spending-medium"
	case p > 0:
		return "spending-low"
	default:
		return "neutral"
	}
}
