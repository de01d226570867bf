// Package cli provides the initialization steps shared by the budget commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SetupLogger builds the application logger from cfg and makes it the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat

	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads a .env file for local use. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadAndValidateConfig resolves the configuration held by v and validates it.
func LoadAndValidateConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewEngine builds the storage engine. The database is opened on first use.
func NewEngine(cfg *config.Config) *storage.Engine {
	return storage.NewEngine(storage.Config{
		Path:        cfg.DBPath,
		BusyTimeout: cfg.BusyTimeout,
	})
}

// ConnectEvents dials the broker when events are enabled. A connection
// failure is logged and publishing is turned off; it never stops a command.
func ConnectEvents(ctx context.Context, logger *log.Logger, cfg *config.Config) *amqp.Publisher {
	if !cfg.EventsEnabled() {
		return nil
	}

	pub, err := amqp.Dial(ctx, amqp.Config{
		URL:        cfg.AMQPURL,
		Exchange:   cfg.AMQPExchange,
		RoutingKey: cfg.AMQPRoutingKey,
	})
	if err != nil {
		logger.WithComponent(log.ComponentAMQP).WarnContext(ctx, "Event publishing disabled", log.FieldError, err)
		return nil
	}
	return pub
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. cleanup,
// when set, runs once the signal arrives.
func SignalContext(parent context.Context, logger *log.Logger, cleanup func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			if cleanup != nil {
				cleanup()
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
