// Package report turns a month of categorized spending into a one-page PDF
// summary: aggregation, ranking, insights and layout.
//
// Amounts are core.Money (cents). Percentages are whole numbers rounded
// half-up, so every derived value is deterministic for a given Input.
package report

import (
	"strconv"

	"roadrich/internal/core"
)

// MaxRankedRows caps the ranked category table.
const MaxRankedRows = 10

// CategoryTotal is a category together with its total for one month.
type CategoryTotal struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon,omitempty"`
	Color       core.RGB          `json:"color"`
	Type        core.CategoryType `json:"type,omitempty"`
	BudgetLimit *core.Money       `json:"budgetLimit,omitempty"`
	Total       core.Money        `json:"total"`
}

// ExpensePoint is a single expense reduced to what the daily statistics need.
type ExpensePoint struct {
	Date   string     `json:"date"` // YYYY-MM-DD, empty entries are ignored
	Amount core.Money `json:"amount"`
}

// Input is everything a monthly report is computed from.
// Amounts in JSON are integer cents.
type Input struct {
	MonthName         string          `json:"monthName"`
	TotalExpenses     core.Money      `json:"totalExpenses"`
	PrevTotalExpenses core.Money      `json:"prevTotalExpenses"`
	Income            core.Money      `json:"income"`
	Categories        []CategoryTotal `json:"categories"`
	PrevCategories    []CategoryTotal `json:"prevCategories"`
	Expenses          []ExpensePoint  `json:"expenses,omitempty"`
	PrevExpenses      []ExpensePoint  `json:"prevExpenses,omitempty"`
}

// Variation is a month-over-month change in whole percent.
// New is set when there was nothing to compare against.
type Variation struct {
	Percent int  `json:"percent"`
	New     bool `json:"new,omitempty"`
}

// IsIncrease reports a strictly positive, comparable change.
func (v Variation) IsIncrease() bool {
	return !v.New && v.Percent > 0
}

// IsDecrease reports a strictly negative change.
func (v Variation) IsDecrease() bool {
	return !v.New && v.Percent < 0
}

// Label renders "+12%", "-8%", "0%" or "Nouveau".
func (v Variation) Label() string {
	if v.New {
		return labelNew
	}
	if v.Percent > 0 {
		return "+" + strconv.Itoa(v.Percent) + "%"
	}
	return strconv.Itoa(v.Percent) + "%"
}

// RankKind classifies how a category's rank moved.
type RankKind int

const (
	RankNew RankKind = iota
	RankUnchanged
	RankMoved
)

// RankDelta is previous rank minus current rank; positive means the
// category climbed toward the top of the ranking.
type RankDelta struct {
	Kind  RankKind `json:"kind"`
	Delta int      `json:"delta"`
}

// Up reports a climb in the ranking.
func (d RankDelta) Up() bool {
	return d.Kind == RankMoved && d.Delta > 0
}

// Magnitude is the absolute number of places moved.
func (d RankDelta) Magnitude() int {
	if d.Delta < 0 {
		return -d.Delta
	}
	return d.Delta
}

// RankedCategoryRow is one line of the ranked table.
type RankedCategoryRow struct {
	Rank           int           `json:"rank"`
	Category       CategoryTotal `json:"category"`
	PrevTotal      core.Money    `json:"prevTotal"`
	PercentOfTotal int           `json:"percentOfTotal"`
	Variation      Variation     `json:"variation"`
	RankDelta      RankDelta     `json:"rankDelta"`
}

// Summary holds every value derived from an Input.
type Summary struct {
	MonthName         string     `json:"monthName"`
	TotalExpenses     core.Money `json:"totalExpenses"`
	PrevTotalExpenses core.Money `json:"prevTotalExpenses"`
	Income            core.Money `json:"income"`
	Savings           core.Money `json:"savings"`
	SavingsRate       int        `json:"savingsRate"`
	ExpenseVariation  Variation  `json:"expenseVariation"`

	HasDailyStats        bool       `json:"hasDailyStats"`
	MedianDaily          core.Money `json:"medianDaily"`
	PrevMedianDaily      core.Money `json:"prevMedianDaily"`
	MedianDailyVariation Variation  `json:"medianDailyVariation"`

	Rows     []RankedCategoryRow `json:"rows"`
	Insights []Insight           `json:"insights"`
}
