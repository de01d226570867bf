package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBusyTimeout is how long SQLite waits on a locked database file.
const DefaultBusyTimeout = 5 * time.Second

// timestampLayout is fixed width and always UTC, so stored timestamps sort
// lexicographically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Querier is the part of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Engine owns the SQLite store. It is built once by the composition root and
// shared by every repository; the database is opened, migrated and seeded
// lazily on first use.
type Engine struct {
	cfg Config

	mu sync.Mutex
	db atomic.Pointer[sql.DB]

	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// Initialize opens the store, applies the schema and seeds the default
// categories. It is idempotent and safe to call concurrently: the first
// caller does the work while the others wait for it. A failed attempt leaves
// the engine uninitialized.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.db.Load() != nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db.Load() != nil {
		return nil
	}

	if e.cfg.Path == "" {
		return &core.StorageError{Op: "initialize", Err: fmt.Errorf("database path is empty")}
	}

	if err := os.MkdirAll(filepath.Dir(e.cfg.Path), 0755); err != nil {
		return &core.StorageError{Op: "initialize", Err: fmt.Errorf("create db directory: %w", err)}
	}

	schema, err := migrateSchema(ctx, e.dsn())
	if err != nil {
		return &core.StorageError{Op: "initialize", Err: err}
	}

	db, err := sql.Open("sqlite", e.dsn())
	if err != nil {
		return &core.StorageError{Op: "initialize", Err: fmt.Errorf("open sqlite database: %w", err)}
	}

	// One connection: statements are serialized and a transaction is never
	// observed half-applied by a concurrent reader.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &core.StorageError{Op: "initialize", Err: fmt.Errorf("ping database: %w", err)}
	}

	if err := seedDefaultCategories(ctx, db, e.now()); err != nil {
		db.Close()
		return &core.StorageError{Op: "initialize", Err: err}
	}

	e.db.Store(db)
	slog.InfoContext(ctx, "Storage initialized", "path", e.cfg.Path, "schema_version", schema.To)
	return nil
}

func (e *Engine) dsn() string {
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		e.cfg.Path, e.cfg.BusyTimeout.Milliseconds())
}

// DB returns the open handle, initializing the engine if needed.
func (e *Engine) DB(ctx context.Context) (*sql.DB, error) {
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	return e.db.Load(), nil
}

// WithTx runs fn inside one SQL transaction. fn's error is returned as is
// after rollback; begin and commit failures are StorageErrors.
func (e *Engine) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	db, err := e.DB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "begin transaction", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// Now returns the engine clock; tests may replace it through SetClock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// SetClock overrides the clock used for created_at timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Close releases the database handle. The engine may be initialized again afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	db := e.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
