package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// application is the wiring shared by every subcommand.
type application struct {
	stop      context.CancelFunc
	cfg       *config.Config
	logger    *log.Logger
	engine    *storage.Engine
	publisher *amqp.Publisher
	ledger    *services.Ledger
	money     *core.CurrencyFormatter
}

var (
	cfgFile   string
	showStats bool
	v         = viper.New()
	app       *application
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Personal budget: categories, transactions and monthly summaries",
		Long: `budget records income and expense transactions under categories kept in a
local SQLite file, and reports month-to-date totals per category.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return teardown(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./budget.yaml if present)")
	cmd.PersistentFlags().String("db", "", "path of the SQLite database")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print operation counters after the command")

	_ = v.BindPFlag(config.KeyDBPath, cmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag(config.KeyLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(transactionsCmd())
	cmd.AddCommand(summaryCmd())
	cmd.AddCommand(eventsCmd())

	return cmd
}

func main() {
	root := rootCmd()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := root.ExecuteContext(ctx)
	if app != nil {
		closeApp()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}

	// defaults win over the empty defaults of the bound flags
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("budget")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := cli.LoadAndValidateConfig(v)
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		return err
	}

	money, err := core.NewCurrencyFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context(), logger, nil)
	cmd.SetContext(ctx)

	engine := cli.NewEngine(cfg)
	opts := services.Options{
		Cache:     cache.NewLRU[core.MonthSummary](cfg.CacheSize, cfg.CacheTTL),
		Logger:    logger,
		ListLimit: cfg.ListLimit,
	}

	publisher := cli.ConnectEvents(ctx, logger, cfg)
	if publisher != nil {
		opts.Events = publisher
	}

	app = &application{
		stop:      stop,
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		publisher: publisher,
		money:     money,
		ledger: services.NewLedger(
			storage.NewCategoryRepository(engine),
			storage.NewTransactionRepository(engine),
			storage.NewSummaryRepository(engine),
			opts,
		),
	}
	return nil
}

func teardown(cmd *cobra.Command) error {
	if !showStats || app == nil {
		return nil
	}
	return printStats(cmd.OutOrStdout(), app.ledger.Metrics())
}

func closeApp() {
	app.stop()
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warn("Failed to close event publisher", log.FieldError, err)
		}
	}
	if err := app.engine.Close(); err != nil {
		app.logger.Warn("Failed to close storage", log.FieldError, err)
	}
}
