package core

// CategoryAmount represents an amount aggregated for one category.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// AmountFor returns the amount aggregated for categoryID, zero when absent.
func (o MonthOverview) AmountFor(categoryID string) Money {
	for _, c := range o.ByCategory {
		if c.CategoryID == categoryID {
			return c.Amount
		}
	}
	return Money{}
}

// Overview sums expenses per category in first-seen order.
func Overview(year, month int, expenses []Expense) MonthOverview {
	ov := MonthOverview{Year: year, Month: month}
	index := map[string]int{}
	for _, e := range expenses {
		ov.Total = ov.Total.Add(e.Amount)
		i, ok := index[e.CategoryID]
		if !ok {
			i = len(ov.ByCategory)
			index[e.CategoryID] = i
			ov.ByCategory = append(ov.ByCategory, CategoryAmount{CategoryID: e.CategoryID})
		}
		ov.ByCategory[i].Amount = ov.ByCategory[i].Amount.Add(e.Amount)
	}
	return ov
}
