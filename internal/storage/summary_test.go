package storage

import (
	"context"
	"testing"
	"time"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2024 = core.MonthOptions{Target: time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)}

func TestSummaryRepository_MonthlyTotals(t *testing.T) {
	ctx := context.Background()
	engine := createTestEngine(t)
	transactions := NewTransactionRepository(engine)
	summary := NewSummaryRepository(engine)

	inputs := []core.TransactionInput{
		{Description: "Pay", Amount: amount("1000"), OccurredOn: "2024-03-01", Type: core.Income},
		{Description: "Food", Amount: amount("200"), OccurredOn: "2024-03-10", Type: core.Expense},
		{Description: "Bus", Amount: amount("50"), OccurredOn: "2024-03-31", Type: core.Expense},
		// outside the window
		{Description: "Feb", Amount: amount("999"), OccurredOn: "2024-02-29", Type: core.Expense},
		{Description: "Apr", Amount: amount("999"), OccurredOn: "2024-04-01", Type: core.Income},
	}
	for _, in := range inputs {
		_, err := transactions.Create(ctx, in)
		require.NoError(t, err)
	}

	totals, err := summary.MonthlyTotals(ctx, march2024)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), totals.Income.Cents)
	assert.Equal(t, int64(25000), totals.Expenses.Cents)
	assert.Equal(t, int64(75000), totals.Balance.Cents)
}

func TestSummaryRepository_MonthlyTotalsEmpty(t *testing.T) {
	summary := NewSummaryRepository(createTestEngine(t))

	totals, err := summary.MonthlyTotals(context.Background(), march2024)
	require.NoError(t, err)
	assert.Equal(t, core.MonthlyTotals{}, totals)
}

func TestSummaryRepository_MonthlyTotalsByCategory(t *testing.T) {
	ctx := context.Background()
	engine := createTestEngine(t)
	categories := NewCategoryRepository(engine)
	transactions := NewTransactionRepository(engine)
	summary := NewSummaryRepository(engine)

	salary := categoryByName(t, categories, "Salary")
	freelance := categoryByName(t, categories, "Freelance")
	housing := categoryByName(t, categories, "Housing")
	groceries := categoryByName(t, categories, "Groceries")

	inputs := []core.TransactionInput{
		{Description: "Pay", Amount: amount("2000"), OccurredOn: "2024-03-01", CategoryID: &salary.ID},
		{Description: "Gig", Amount: amount("300"), OccurredOn: "2024-03-05", CategoryID: &freelance.ID},
		{Description: "Gig", Amount: amount("200"), OccurredOn: "2024-03-06", CategoryID: &freelance.ID},
		{Description: "Rent", Amount: amount("900"), OccurredOn: "2024-03-01", CategoryID: &housing.ID},
		{Description: "Food", Amount: amount("60"), OccurredOn: "2024-03-08", CategoryID: &groceries.ID},
		{Description: "Food", Amount: amount("40"), OccurredOn: "2024-03-09", CategoryID: &groceries.ID},
		{Description: "Loose", Amount: amount("15"), OccurredOn: "2024-03-09", Type: core.Expense},
		{Description: "Old", Amount: amount("70"), OccurredOn: "2024-02-10", CategoryID: &groceries.ID},
	}
	for _, in := range inputs {
		_, err := transactions.Create(ctx, in)
		require.NoError(t, err)
	}

	rows, err := summary.MonthlyTotalsByCategory(ctx, march2024)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	type row struct {
		name  string
		typ   core.CategoryType
		cents int64
	}
	var got []row
	for _, r := range rows {
		got = append(got, row{r.CategoryName, r.CategoryType, r.Total.Cents})
	}

	// income first; expense rows ordered by the stored (negative) sum, so the
	// smaller magnitude comes first, then negated for the report
	assert.Equal(t, []row{
		{"Salary", core.Income, 200000},
		{"Freelance", core.Income, 50000},
		{"Groceries", core.Expense, 10000},
		{"Housing", core.Expense, 90000},
	}, got)
	assert.Equal(t, salary.ID, rows[0].CategoryID)
}

func TestSummaryRepository_MonthlyTotalsByCategoryEmpty(t *testing.T) {
	summary := NewSummaryRepository(createTestEngine(t))

	rows, err := summary.MonthlyTotalsByCategory(context.Background(), march2024)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
