package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSchema(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(Config{Path: filepath.Join(t.TempDir(), "budget.db")})

	first, err := migrateSchema(ctx, engine.dsn())
	require.NoError(t, err)
	assert.Equal(t, uint(0), first.From)
	assert.Equal(t, uint(1), first.To)

	again, err := migrateSchema(ctx, engine.dsn())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion{From: 1, To: 1}, again)
}

func TestMigrateSchema_RefusesDirtyStore(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(Config{Path: filepath.Join(t.TempDir(), "budget.db")})

	_, err := migrateSchema(ctx, engine.dsn())
	require.NoError(t, err)

	db, err := sql.Open("sqlite", engine.dsn())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE schema_migrations SET dirty = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = migrateSchema(ctx, engine.dsn())
	assert.ErrorIs(t, err, errDirtySchema)

	err = engine.Initialize(ctx)
	assert.ErrorIs(t, err, errDirtySchema)
	t.Cleanup(func() { _ = engine.Close() })
}
