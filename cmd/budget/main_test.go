package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one CLI invocation against dbPath and returns its stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	if app != nil {
		closeApp()
		app = nil
	}
	return out.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "budget.db")

	out, err := run(t, db, "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "Groceries")

	out, err = run(t, db, "categories", "add", "Books", "--type", "expense")
	require.NoError(t, err)
	assert.Contains(t, out, `"Books"`)

	_, err = run(t, db, "categories", "add", "Books")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	out, err = run(t, db, "tx", "add", "Rent", "800", "--category", "housing", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "-800.00")

	_, err = run(t, db, "tx", "add", "Pay", "1000", "--category", "Salary", "--date", "2024-03-02")
	require.NoError(t, err)

	_, err = run(t, db, "tx", "add", "Coffee", "3,50", "--date", "2024-03-03")
	require.NoError(t, err)

	out, err = run(t, db, "tx", "range", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "(none)")

	out, err = run(t, db, "summary", "--month", "2024-03", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-01 to 2024-03-31")
	assert.Contains(t, out, "1,000.00")
	assert.Contains(t, out, "803.50")
	assert.Contains(t, out, "196.50")
	assert.Contains(t, out, "Housing")
	assert.Contains(t, out, "summary cache misses")

	_, err = run(t, db, "tx", "update", "1", "--amount", "750")
	require.NoError(t, err)

	out, err = run(t, db, "tx", "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee")
	assert.NotContains(t, out, "Rent")

	_, err = run(t, db, "tx", "delete", "999")
	assert.NoError(t, err)

	_, err = run(t, db, "categories", "delete", "abc")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = run(t, db, "events", "tail")
	assert.ErrorContains(t, err, "events are disabled")
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "x1"} {
		_, err := parseID(bad)
		assert.ErrorIs(t, err, core.ErrValidation, bad)
	}
}

func TestEffectiveType(t *testing.T) {
	income := core.Income
	assert.Equal(t, core.Income, effectiveType(core.Transaction{CategoryType: &income, Amount: core.Money{Cents: -5}}))
	assert.Equal(t, core.Expense, effectiveType(core.Transaction{Amount: core.Money{Cents: -5}}))
	assert.Equal(t, core.Income, effectiveType(core.Transaction{Amount: core.Money{Cents: 0}}))
}
