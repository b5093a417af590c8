package http

import (
	"strings"

	"roadrich/internal/core"
	"roadrich/internal/nav"
)

// Wire shapes. Amounts are integer cents, dates YYYY-MM-DD, colors #RRGGBB.

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type profileView struct {
	FirstName     string     `json:"firstName"`
	MonthlyIncome core.Money `json:"monthlyIncome"`
}

type stateView struct {
	Screen     nav.Screen        `json:"screen"`
	AuthMode   nav.AuthMode      `json:"authMode,omitempty"`
	CategoryID string            `json:"categoryId,omitempty"`
	EntryMode  core.CategoryType `json:"entryMode,omitempty"`
	User       *userView         `json:"user,omitempty"`
	Profile    *profileView      `json:"profile,omitempty"`
}

func newStateView(st nav.State) stateView {
	v := stateView{
		Screen:     st.Screen,
		AuthMode:   st.AuthMode,
		CategoryID: st.CategoryID,
		EntryMode:  st.EntryMode,
	}
	if st.User != nil {
		v.User = &userView{ID: st.User.ID, Email: st.User.Email}
	}
	if st.Profile != nil {
		v.Profile = &profileView{FirstName: st.Profile.FirstName, MonthlyIncome: st.Profile.MonthlyIncome}
	}
	return v
}

type categoryView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon"`
	Color       core.RGB          `json:"color"`
	Type        core.CategoryType `json:"type"`
	BudgetLimit *core.Money       `json:"budgetLimit,omitempty"`
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:          c.ID,
		Name:        c.Name,
		Icon:        c.Icon,
		Color:       c.Color,
		Type:        c.Type,
		BudgetLimit: c.BudgetLimit,
	}
}

func newCategoryViews(cats []core.Category) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryView(c))
	}
	return out
}

type expenseView struct {
	ID            string     `json:"id"`
	CategoryID    string     `json:"categoryId"`
	Amount        core.Money `json:"amount"`
	Formatted     string     `json:"formatted"`
	Date          core.Date  `json:"date"`
	IsRecurring   bool       `json:"isRecurring"`
	RecurrenceDay int        `json:"recurrenceDay,omitempty"`
	Description   string     `json:"description"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:            e.ID,
		CategoryID:    e.CategoryID,
		Amount:        e.Amount,
		Formatted:     core.FormatCurrency(e.Amount),
		Date:          e.Date,
		IsRecurring:   e.IsRecurring,
		RecurrenceDay: e.RecurrenceDay,
		Description:   e.Description,
	}
}

func newExpenseViews(list []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(list))
	for _, e := range list {
		out = append(out, newExpenseView(e))
	}
	return out
}

// Requests.

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type onboardingRequest struct {
	FirstName     string `json:"firstName"`
	MonthlyIncome string `json:"monthlyIncome"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Type        string `json:"type"`
	BudgetLimit string `json:"budgetLimit"`
}

func (req categoryRequest) toCategory(userID string) (core.Category, error) {
	c := core.Category{
		UserID: userID,
		Name:   sanitizeInput(req.Name),
		Icon:   sanitizeInput(req.Icon),
		Type:   core.CategoryType(strings.ToLower(strings.TrimSpace(req.Type))),
	}
	if strings.TrimSpace(req.Color) != "" {
		color, err := core.ParseHexColor(req.Color)
		if err != nil {
			return core.Category{}, err
		}
		c.Color = color
	}
	budget, err := ParseOptionalMoney(req.BudgetLimit)
	if err != nil {
		return core.Category{}, err
	}
	c.BudgetLimit = budget
	return c, nil
}

type expenseRequest struct {
	CategoryID    string `json:"categoryId"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	IsRecurring   bool   `json:"isRecurring"`
	RecurrenceDay int    `json:"recurrenceDay"`
	Description   string `json:"description"`
}

func (req expenseRequest) toExpense(userID string) (core.Expense, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		UserID:        userID,
		CategoryID:    strings.TrimSpace(req.CategoryID),
		Amount:        amount,
		IsRecurring:   req.IsRecurring,
		RecurrenceDay: req.RecurrenceDay,
		Description:   sanitizeInput(req.Description),
	}
	if strings.TrimSpace(req.Date) != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = d
	}
	return e, nil
}
