package main

import (
	"fmt"

	"budget/internal/core"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and balance for a month, with a per-category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts core.MonthOptions
			if month != "" {
				target, err := core.ParseMonth(month)
				if err != nil {
					return err
				}
				opts.Target = target
			}

			s, err := app.ledger.MonthSummary(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s to %s\n\n", headerStyle.Render("Month"), s.Month.Start, s.Month.End)

			totals := newTable(out, "Income", "Expenses", "Balance")
			totals.row(
				incomeStyle.Render(app.money.FormatMoney(s.Totals.Income)),
				expenseStyle.Render(app.money.FormatMoney(s.Totals.Expenses)),
				app.money.FormatMoney(s.Totals.Balance))
			if err := totals.flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			if len(s.ByCategory) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No categorized transactions this month."))
				return nil
			}

			t := newTable(out, "Category", "Type", "Total")
			for _, row := range s.ByCategory {
				t.row(row.CategoryName, typeLabel(row.CategoryType), app.money.FormatMoney(row.Total))
			}
			return t.flush()
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default current month)")
	return cmd
}
