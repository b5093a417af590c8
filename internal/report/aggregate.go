package report

import (
	"sort"

	"roadrich/internal/core"
)

// VariationPercent compares current against previous.
// Both zero yields 0%; a previous of zero with spending now yields New.
func VariationPercent(current, previous core.Money) Variation {
	if previous.Cents <= 0 {
		if current.Cents <= 0 {
			return Variation{}
		}
		return Variation{New: true}
	}
	delta := float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
	return Variation{Percent: core.RoundHalfUp(delta)}
}

// PercentOfTotal is part's rounded share of total, 0 when total is not positive.
func PercentOfTotal(part, total core.Money) int {
	if total.Cents <= 0 {
		return 0
	}
	return core.RoundHalfUp(float64(part.Cents) / float64(total.Cents) * 100)
}

// SavingsRate is the rounded share of income left after expenses.
// It can be negative when spending exceeds income, and is 0 without income.
func SavingsRate(income, totalExpenses core.Money) int {
	if income.Cents <= 0 {
		return 0
	}
	return core.RoundHalfUp(float64(income.Cents-totalExpenses.Cents) / float64(income.Cents) * 100)
}

// sortedPositive drops categories without spending and orders the rest by
// total, largest first. Ties keep their input order.
func sortedPositive(categories []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(categories))
	for _, c := range categories {
		if c.Total.Cents > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// RankCategories returns at most MaxRankedRows categories with spending,
// largest total first.
func RankCategories(categories []CategoryTotal) []CategoryTotal {
	ranked := sortedPositive(categories)
	if len(ranked) > MaxRankedRows {
		ranked = ranked[:MaxRankedRows]
	}
	return ranked
}

// PreviousRankMap maps category ID to its 1-based rank in the previous month.
// Unlike the table it is not truncated, so a category ranked 12th last month
// still reports a rank change.
func PreviousRankMap(prev []CategoryTotal) map[string]int {
	ranked := sortedPositive(prev)
	ranks := make(map[string]int, len(ranked))
	for i, c := range ranked {
		if _, seen := ranks[c.ID]; !seen {
			ranks[c.ID] = i + 1
		}
	}
	return ranks
}

// RankDeltaFrom builds the delta for a category currently at currentRank.
func RankDeltaFrom(currentRank, previousRank int, found bool) RankDelta {
	if !found {
		return RankDelta{Kind: RankNew}
	}
	delta := previousRank - currentRank
	if delta == 0 {
		return RankDelta{Kind: RankUnchanged}
	}
	return RankDelta{Kind: RankMoved, Delta: delta}
}

// ComputeRankDelta looks id up in the previous ranking.
func ComputeRankDelta(currentRank int, prevRanks map[string]int, id string) RankDelta {
	prev, ok := prevRanks[id]
	return RankDeltaFrom(currentRank, prev, ok)
}

// MedianDailyExpense groups expenses by calendar day, sums each day and
// returns the median of those sums rounded to whole currency units.
// Days without any expense are not counted.
func MedianDailyExpense(expenses []ExpensePoint) core.Money {
	byDay := map[string]int64{}
	for _, e := range expenses {
		if e.Date == "" {
			continue
		}
		byDay[e.Date] += e.Amount.Cents
	}
	if len(byDay) == 0 {
		return core.Money{}
	}
	values := make([]int64, 0, len(byDay))
	for _, v := range byDay {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	mid := len(values) / 2
	var median float64
	if len(values)%2 == 0 {
		median = float64(values[mid-1]+values[mid]) / 2
	} else {
		median = float64(values[mid])
	}
	euros := core.RoundHalfUp(median / 100)
	return core.Money{Cents: int64(euros) * 100}
}

// BuildRows ranks the current month and annotates each row with its share,
// variation and rank movement against the previous month.
func BuildRows(in Input) []RankedCategoryRow {
	ranked := RankCategories(in.Categories)
	prevRanks := PreviousRankMap(in.PrevCategories)
	prevTotals := make(map[string]core.Money, len(in.PrevCategories))
	for _, c := range in.PrevCategories {
		if _, seen := prevTotals[c.ID]; !seen {
			prevTotals[c.ID] = c.Total
		}
	}

	rows := make([]RankedCategoryRow, 0, len(ranked))
	for i, c := range ranked {
		rank := i + 1
		prev := prevTotals[c.ID]
		rows = append(rows, RankedCategoryRow{
			Rank:           rank,
			Category:       c,
			PrevTotal:      prev,
			PercentOfTotal: PercentOfTotal(c.Total, in.TotalExpenses),
			Variation:      VariationPercent(c.Total, prev),
			RankDelta:      ComputeRankDelta(rank, prevRanks, c.ID),
		})
	}
	return rows
}

// Summarize derives every figure shown on the report. It never fails:
// missing data degrades to zero values.
func Summarize(in Input, policy Policy) Summary {
	s := Summary{
		MonthName:         in.MonthName,
		TotalExpenses:     in.TotalExpenses,
		PrevTotalExpenses: in.PrevTotalExpenses,
		Income:            in.Income,
		Savings:           in.Income.Sub(in.TotalExpenses),
		SavingsRate:       SavingsRate(in.Income, in.TotalExpenses),
		ExpenseVariation:  VariationPercent(in.TotalExpenses, in.PrevTotalExpenses),
		Rows:              BuildRows(in),
	}
	if len(in.Expenses) > 0 {
		s.HasDailyStats = true
		s.MedianDaily = MedianDailyExpense(in.Expenses)
		s.PrevMedianDaily = MedianDailyExpense(in.PrevExpenses)
		s.MedianDailyVariation = VariationPercent(s.MedianDaily, s.PrevMedianDaily)
	}
	s.Insights = GenerateInsights(s, policy)
	return s
}
