package storage

import (
	"context"

	"budget/internal/core"
)

// SummaryRepository computes month-window aggregates over stored transactions.
type SummaryRepository struct {
	engine *Engine
}

func NewSummaryRepository(engine *Engine) *SummaryRepository {
	return &SummaryRepository{engine: engine}
}

// MonthlyTotals sums the selected month. Empty months yield zeros.
func (r *SummaryRepository) MonthlyTotals(ctx context.Context, opts core.MonthOptions) (core.MonthlyTotals, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return core.MonthlyTotals{}, err
	}

	month := opts.Month()
	var positive, negative int64
	err = db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN amount_cents >= 0 THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN amount_cents < 0 THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE occurred_on BETWEEN ? AND ?`,
		month.Start, month.End).Scan(&positive, &negative)
	if err != nil {
		return core.MonthlyTotals{}, storageErr("monthly totals", err)
	}

	return core.NewMonthlyTotals(core.Money{Cents: positive}, core.Money{Cents: negative}), nil
}

// MonthlyTotalsByCategory groups the selected month by linked category.
// Uncategorized transactions are left out. Rows are ordered by type descending
// then by the stored sum descending; expense totals are returned negated.
func (r *SummaryRepository) MonthlyTotalsByCategory(ctx context.Context, opts core.MonthOptions) ([]core.CategoryMonthlyTotal, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return nil, err
	}

	month := opts.Month()
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.name, c.type, SUM(t.amount_cents) AS total
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.occurred_on BETWEEN ? AND ?
		GROUP BY c.id, c.name, c.type
		ORDER BY c.type DESC, total DESC`,
		month.Start, month.End)
	if err != nil {
		return nil, storageErr("monthly totals by category", err)
	}
	defer rows.Close()

	totals := []core.CategoryMonthlyTotal{}
	for rows.Next() {
		var (
			row core.CategoryMonthlyTotal
			typ string
			sum int64
		)
		if err := rows.Scan(&row.CategoryID, &row.CategoryName, &typ, &sum); err != nil {
			return nil, storageErr("scan category total", err)
		}
		row.CategoryType = core.CategoryType(typ)
		row.Total = core.Money{Cents: sum}
		if row.CategoryType == core.Expense {
			row.Total = row.Total.Neg()
		}
		totals = append(totals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate category totals", err)
	}

	return totals, nil
}
