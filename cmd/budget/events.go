package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"budget/internal/amqp"
	"budget/internal/core"

	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect ledger change events (requires BUDGET_AMQP_URL)",
	}
	cmd.AddCommand(tailEventsCmd())
	return cmd
}

func tailEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print change events as they are published, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.cfg.EventsEnabled() {
				return errors.New("events are disabled: set BUDGET_AMQP_URL")
			}

			ctx := cmd.Context()
			sub, err := amqp.Subscribe(ctx, amqp.Config{
				URL:        app.cfg.AMQPURL,
				Exchange:   app.cfg.AMQPExchange,
				RoutingKey: app.cfg.AMQPRoutingKey,
			})
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, mutedStyle.Render("Waiting for events, Ctrl+C to stop."))

			err = sub.Run(ctx, func(ctx context.Context, e amqp.LedgerEvent) error {
				return printEvent(ctx, out, e)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// printEvent shows the event with the entity's current state read back from the store.
func printEvent(ctx context.Context, out io.Writer, e amqp.LedgerEvent) error {
	head := fmt.Sprintf("%s %s %s %d",
		e.Timestamp.Local().Format("15:04:05"), headerStyle.Render(string(e.Kind)), e.Entity, e.EntityID)

	if e.Kind == amqp.Deleted {
		fmt.Fprintln(out, head)
		return nil
	}

	var detail string
	switch e.Entity {
	case amqp.CategoryEntity:
		cat, err := app.ledger.Category(ctx, e.EntityID)
		if errors.Is(err, core.ErrNotFound) {
			detail = mutedStyle.Render("(gone)")
		} else if err != nil {
			return err
		} else {
			detail = fmt.Sprintf("%q %s", cat.Name, typeLabel(cat.Type))
		}
	case amqp.TransactionEntity:
		txn, err := app.ledger.Transaction(ctx, e.EntityID)
		if errors.Is(err, core.ErrNotFound) {
			detail = mutedStyle.Render("(gone)")
		} else if err != nil {
			return err
		} else {
			detail = fmt.Sprintf("%s %s %s", txn.OccurredOn, txn.Description, app.money.FormatMoney(txn.Amount))
		}
	}

	fmt.Fprintln(out, head+"  "+detail)
	return nil
}
