package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// errDirtySchema means an earlier migration stopped halfway. The store is
// left alone until someone repairs it by hand.
var errDirtySchema = errors.New("schema is dirty")

// SchemaVersion is the migration level of a store before and after a run.
type SchemaVersion struct {
	From uint
	To   uint
}

// migrateSchema applies the embedded migrations to the database behind dsn.
// Every migration only creates what is absent, so an existing store keeps its
// data. Cancelling ctx stops the run after the current migration.
func migrateSchema(ctx context.Context, dsn string) (SchemaVersion, error) {
	// closing the migrate instance closes this handle too, so it is not shared
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{ctx: ctx}

	from, err := schemaVersion(m)
	if err != nil {
		return SchemaVersion{}, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{From: from}, fmt.Errorf("apply migrations from version %d: %w", from, err)
	}
	if err := ctx.Err(); err != nil {
		return SchemaVersion{From: from}, err
	}

	to, err := schemaVersion(m)
	if err != nil {
		return SchemaVersion{From: from}, err
	}

	v := SchemaVersion{From: from, To: to}
	if v.From != v.To {
		slog.InfoContext(ctx, "Schema migrated", "from", v.From, "to", v.To)
	}
	return v, nil
}

// schemaVersion reports the applied version, 0 for an empty database.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("version %d: %w", version, errDirtySchema)
	}
	return version, nil
}

// migrateLogger routes golang-migrate output to slog at debug level.
type migrateLogger struct {
	ctx context.Context
}

func (l migrateLogger) Printf(format string, v ...any) {
	slog.DebugContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l migrateLogger) Verbose() bool {
	return slog.Default().Enabled(l.ctx, slog.LevelDebug)
}
