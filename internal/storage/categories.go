package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

const categoryColumns = `id, name, type, color, created_at`

// CategoryRepository persists categories and keeps linked transactions' signs
// consistent with the category type.
type CategoryRepository struct {
	engine *Engine
}

func NewCategoryRepository(engine *Engine) *CategoryRepository {
	return &CategoryRepository{engine: engine}
}

// List returns every category ordered by type descending, then name.
func (r *CategoryRepository) List(ctx context.Context) ([]core.Category, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY type DESC, name ASC`)
	if err != nil {
		return nil, storageErr("query categories", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate categories", err)
	}

	slog.DebugContext(ctx, "Retrieved categories", "count", len(categories))
	return categories, nil
}

// Get returns a single category.
func (r *CategoryRepository) Get(ctx context.Context, id int64) (core.Category, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return core.Category{}, err
	}
	return getCategory(ctx, db, id)
}

// Create validates and inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	in, err := in.Normalize()
	if err != nil {
		return core.Category{}, err
	}

	var created core.Category
	err = r.engine.WithTx(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO categories (name, type, color, created_at)
			VALUES (?, ?, ?, ?)`,
			in.Name, string(in.Type), in.Color, formatTimestamp(r.engine.Now()))
		if err != nil {
			return categoryWriteErr("insert category", in.Name, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("category id", err)
		}

		created, err = getCategory(ctx, q, id)
		return err
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created",
		"id", created.ID,
		"name", created.Name,
		"type", created.Type)
	return created, nil
}

// Update rewrites a category and, in the same transaction, re-signs every
// transaction linked to it to match the new type.
func (r *CategoryRepository) Update(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error) {
	in, err := in.Normalize()
	if err != nil {
		return core.Category{}, err
	}

	var (
		updated  core.Category
		resigned int64
	)
	err = r.engine.WithTx(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE categories
			SET name = ?, type = ?, color = ?
			WHERE id = ?`,
			in.Name, string(in.Type), in.Color, id)
		if err != nil {
			return categoryWriteErr("update category", in.Name, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("update category", err)
		}
		if n == 0 {
			return &core.NotFoundError{Entity: "category", ID: id}
		}

		res, err = q.ExecContext(ctx, `
			UPDATE transactions
			SET amount_cents = CASE WHEN ? = 'expense' THEN -ABS(amount_cents) ELSE ABS(amount_cents) END
			WHERE category_id = ?`,
			string(in.Type), id)
		if err != nil {
			return storageErr("re-sign transactions", err)
		}
		if resigned, err = res.RowsAffected(); err != nil {
			return storageErr("re-sign transactions", err)
		}

		updated, err = getCategory(ctx, q, id)
		return err
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category updated",
		"id", updated.ID,
		"name", updated.Name,
		"type", updated.Type,
		"resigned_transactions", resigned)
	return updated, nil
}

// Delete removes a category. Linked transactions are kept and unlinked by the
// schema's ON DELETE SET NULL rule.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete category", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "category", ID: id}
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func getCategory(ctx context.Context, q Querier, id int64) (core.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	return cat, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		cat       core.Category
		typ       string
		createdAt string
	)
	if err := s.Scan(&cat.ID, &cat.Name, &typ, &cat.Color, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, err
		}
		return core.Category{}, storageErr("scan category", err)
	}

	cat.Type = core.CategoryType(typ)
	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return core.Category{}, storageErr("scan category", err)
	}
	cat.CreatedAt = ts
	return cat, nil
}

// categoryWriteErr maps a unique violation on the name column to a
// DuplicateNameError and wraps everything else.
func categoryWriteErr(op, name string, err error) error {
	switch ClassifyConstraint(err) {
	case ConstraintUnique:
		return &core.DuplicateNameError{Name: name}
	case ConstraintNone:
		return storageErr(op, err)
	default:
		return storageErr(op, fmt.Errorf("constraint violation: %w", err))
	}
}
