package core

// MonthlyTotals summarizes a month window. Income and Expenses are both
// non-negative; Balance = Income - Expenses.
type MonthlyTotals struct {
	Income   Money
	Expenses Money
	Balance  Money
}

// NewMonthlyTotals derives the totals from the sum of non-negative amounts and
// the sum of negative amounts.
func NewMonthlyTotals(positive, negative Money) MonthlyTotals {
	expenses := negative.Abs()
	return MonthlyTotals{
		Income:   positive,
		Expenses: expenses,
		Balance:  positive.Sub(expenses),
	}
}

// CategoryMonthlyTotal is the per-category sum for a month window. Expense
// totals are reported as the negation of the stored (negative) sum.
type CategoryMonthlyTotal struct {
	CategoryID   int64
	CategoryName string
	CategoryType CategoryType
	Total        Money
}

// MonthSummary bundles totals and breakdown for one month.
type MonthSummary struct {
	Month      DateRange
	Totals     MonthlyTotals
	ByCategory []CategoryMonthlyTotal
}
