package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budget/internal/core"
)

type seedCategory struct {
	name  string
	typ   core.CategoryType
	color string
}

var defaultCategories = []seedCategory{
	{"Salary", core.Income, "#2e7d32"},
	{"Freelance", core.Income, "#388e3c"},
	{"Investments", core.Income, "#43a047"},
	{"Housing", core.Expense, "#c62828"},
	{"Groceries", core.Expense, "#d84315"},
	{"Transport", core.Expense, "#ef6c00"},
	{"Utilities", core.Expense, "#f9a825"},
	{"Health", core.Expense, "#ad1457"},
	{"Entertainment", core.Expense, "#6a1b9a"},
	{"Other", core.Expense, "#546e7a"},
}

// seedDefaultCategories inserts the defaults that are missing by name. Existing
// rows are never touched.
func seedDefaultCategories(ctx context.Context, db *sql.DB, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := formatTimestamp(now)
	for _, c := range defaultCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, type, color, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			c.name, string(c.typ), c.color, createdAt)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}
