package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"budget/internal/core"

	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and browse transactions",
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(rangeTransactionsCmd())
	cmd.AddCommand(addTransactionCmd())
	cmd.AddCommand(updateTransactionCmd())
	cmd.AddCommand(deleteTransactionCmd())

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txns, err := app.ledger.Transactions(cmd.Context(), core.ListOptions{Limit: limit})
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum rows (default from config)")
	return cmd
}

func rangeTransactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <start> <end>",
		Short: "Show transactions dated between start and end, inclusive (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txns, err := app.ledger.TransactionsInRange(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}
}

// transactionFlags are shared by add and update.
type transactionFlags struct {
	date          string
	category      string
	typ           string
	uncategorized bool
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category ID or name")
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "income or expense, used when no category is given")
}

func addTransactionCmd() *cobra.Command {
	var flags transactionFlags

	cmd := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record a transaction",
		Long: `Record a transaction. The stored sign follows the category type (or --type
when uncategorized): expenses are negative, income non-negative, whatever
sign the amount was typed with.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}

			in := core.TransactionInput{
				Description: args[0],
				Amount:      amount,
				OccurredOn:  flags.date,
			}
			if err := applyCategory(ctx, &in, flags); err != nil {
				return err
			}

			txn, err := app.ledger.CreateTransaction(ctx, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s transaction %d: %s %s on %s\n",
				successStyle.Render("Recorded"), txn.ID, txn.Description,
				app.money.FormatMoney(txn.Amount), txn.OccurredOn)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func updateTransactionCmd() *cobra.Command {
	var (
		flags       transactionFlags
		description string
		amount      string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := app.ledger.Transaction(ctx, id)
			if err != nil {
				return err
			}

			in := core.TransactionInput{
				Description: current.Description,
				Amount:      current.Amount.Decimal(),
				OccurredOn:  current.OccurredOn,
				CategoryID:  current.CategoryID,
				Type:        effectiveType(current),
			}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			if cmd.Flags().Changed("amount") {
				if in.Amount, err = core.ParseAmount(amount); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("date") {
				in.OccurredOn = flags.date
			}
			if flags.uncategorized {
				in.CategoryID = nil
			}
			if flags.category != "" || flags.typ != "" {
				if err := applyCategory(ctx, &in, flags); err != nil {
					return err
				}
			}

			txn, err := app.ledger.UpdateTransaction(ctx, id, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s transaction %d: %s %s on %s\n",
				successStyle.Render("Updated"), txn.ID, txn.Description,
				app.money.FormatMoney(txn.Amount), txn.OccurredOn)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "new amount")
	cmd.Flags().BoolVar(&flags.uncategorized, "uncategorized", false, "unlink the category")
	cmd.MarkFlagsMutuallyExclusive("category", "uncategorized")
	return cmd
}

func deleteTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.ledger.DeleteTransaction(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s transaction %d\n", successStyle.Render("Deleted"), id)
			return nil
		},
	}
}

// applyCategory resolves --category (ID or name) and --type into in.
func applyCategory(ctx context.Context, in *core.TransactionInput, flags transactionFlags) error {
	if flags.typ != "" {
		t, err := core.ParseCategoryType(flags.typ)
		if err != nil {
			return err
		}
		in.Type = t
	}

	if flags.category == "" {
		if in.CategoryID == nil && in.Type == "" {
			in.Type = core.Expense
		}
		return nil
	}

	if id, err := strconv.ParseInt(flags.category, 10, 64); err == nil {
		in.CategoryID = &id
		return nil
	}

	categories, err := app.ledger.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, flags.category) {
			id := c.ID
			in.CategoryID = &id
			return nil
		}
	}
	return &core.ValidationError{Field: "category", Message: fmt.Sprintf("no category named %q", flags.category)}
}

// effectiveType recovers the type a stored transaction was normalized with.
func effectiveType(txn core.Transaction) core.CategoryType {
	if txn.CategoryType != nil {
		return *txn.CategoryType
	}
	if txn.Amount.Cents < 0 {
		return core.Expense
	}
	return core.Income
}

func printTransactions(out io.Writer, txns []core.Transaction) error {
	if len(txns) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No transactions."))
		return nil
	}

	t := newTable(out, "ID", "Date", "Description", "Category", "Amount")
	for _, txn := range txns {
		amount := app.money.FormatMoney(txn.Amount)
		if txn.Amount.Cents < 0 {
			amount = expenseStyle.Render(amount)
		} else {
			amount = incomeStyle.Render(amount)
		}
		t.row(txn.ID, txn.OccurredOn, txn.Description, orMuted(txn.CategoryName, "(none)"), amount)
	}
	return t.flush()
}
