package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"budget/internal/core"
)

const transactionSelect = `
	SELECT t.id, t.description, t.amount_cents, t.occurred_on, t.category_id, t.created_at,
	       c.name, c.type
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

const transactionOrder = `
	ORDER BY t.occurred_on DESC, t.created_at DESC, t.id DESC`

// TransactionRepository persists transactions. Stored amounts always carry
// the sign of the effective type: negative for expense, non-negative for income.
type TransactionRepository struct {
	engine *Engine
}

func NewTransactionRepository(engine *Engine) *TransactionRepository {
	return &TransactionRepository{engine: engine}
}

// List returns the most recent transactions, newest first.
func (r *TransactionRepository) List(ctx context.Context, opts core.ListOptions) ([]core.Transaction, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return nil, err
	}
	return queryTransactions(ctx, db, transactionSelect+transactionOrder+` LIMIT ?`, opts.EffectiveLimit())
}

// ListForRange returns every transaction whose date falls in [start, end].
func (r *TransactionRepository) ListForRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	if _, err := core.ParseDay(start); err != nil {
		return nil, &core.ValidationError{Field: "start", Message: "start must be a date in YYYY-MM-DD format"}
	}
	if _, err := core.ParseDay(end); err != nil {
		return nil, &core.ValidationError{Field: "end", Message: "end must be a date in YYYY-MM-DD format"}
	}
	if end < start {
		return nil, &core.ValidationError{Field: "end", Message: "end must not be before start"}
	}

	db, err := r.engine.DB(ctx)
	if err != nil {
		return nil, err
	}
	return queryTransactions(ctx, db,
		transactionSelect+` WHERE t.occurred_on BETWEEN ? AND ?`+transactionOrder,
		start, end)
}

// Get returns a single transaction with its category info.
func (r *TransactionRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	return getTransaction(ctx, db, id)
}

// Create normalizes the amount sign from the effective type and inserts the row.
func (r *TransactionRepository) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	now := r.engine.Now()
	in, err := in.Normalize(now)
	if err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err = r.engine.WithTx(ctx, func(q Querier) error {
		typ, categoryID, err := resolveEffectiveType(ctx, q, in)
		if err != nil {
			return err
		}
		amount := core.MoneyFromDecimal(in.Amount).Signed(typ)

		res, err := q.ExecContext(ctx, `
			INSERT INTO transactions (description, amount_cents, occurred_on, category_id, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			in.Description, amount.Cents, in.OccurredOn, categoryID, formatTimestamp(now))
		if err != nil {
			return storageErr("insert transaction", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("transaction id", err)
		}

		created, err = getTransaction(ctx, q, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"amount_cents", created.Amount.Cents,
		"occurred_on", created.OccurredOn,
		"category_id", nullableInt(created.CategoryID))
	return created, nil
}

// Update applies the same normalization as Create to an existing row.
func (r *TransactionRepository) Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	in, err := in.Normalize(r.engine.Now())
	if err != nil {
		return core.Transaction{}, err
	}

	var updated core.Transaction
	err = r.engine.WithTx(ctx, func(q Querier) error {
		typ, categoryID, err := resolveEffectiveType(ctx, q, in)
		if err != nil {
			return err
		}
		amount := core.MoneyFromDecimal(in.Amount).Signed(typ)

		res, err := q.ExecContext(ctx, `
			UPDATE transactions
			SET description = ?, amount_cents = ?, occurred_on = ?, category_id = ?
			WHERE id = ?`,
			in.Description, amount.Cents, in.OccurredOn, categoryID, id)
		if err != nil {
			return storageErr("update transaction", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("update transaction", err)
		}
		if n == 0 {
			return &core.NotFoundError{Entity: "transaction", ID: id}
		}

		updated, err = getTransaction(ctx, q, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", updated.ID,
		"amount_cents", updated.Amount.Cents,
		"occurred_on", updated.OccurredOn)
	return updated, nil
}

// Delete removes a transaction. Unknown ids are not an error.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	db, err := r.engine.DB(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete transaction", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.WarnContext(ctx, "Transaction deleted, row count unavailable", "id", id, "error", err)
		return nil
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "existed", n > 0)
	return nil
}

// resolveEffectiveType picks the linked category's type, falling back to the
// caller's type when the category id does not resolve. A stale id is stored as NULL.
func resolveEffectiveType(ctx context.Context, q Querier, in core.TransactionInput) (core.CategoryType, sql.NullInt64, error) {
	if in.CategoryID != nil {
		var typ string
		err := q.QueryRowContext(ctx, `SELECT type FROM categories WHERE id = ?`, *in.CategoryID).Scan(&typ)
		switch {
		case err == nil:
			return core.CategoryType(typ), sql.NullInt64{Int64: *in.CategoryID, Valid: true}, nil
		case errors.Is(err, sql.ErrNoRows):
			slog.WarnContext(ctx, "Category not found, using supplied type",
				"category_id", *in.CategoryID,
				"type", in.Type)
		default:
			return "", sql.NullInt64{}, storageErr("lookup category type", err)
		}
	}

	if !in.Type.Valid() {
		return "", sql.NullInt64{}, &core.ValidationError{Field: "type", Message: "type is required when no category is linked"}
	}
	return in.Type, sql.NullInt64{}, nil
}

func getTransaction(ctx context.Context, q Querier, id int64) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return txn, err
}

func queryTransactions(ctx context.Context, q Querier, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query transactions", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transactions", err)
	}

	slog.DebugContext(ctx, "Retrieved transactions", "count", len(transactions))
	return transactions, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		txn          core.Transaction
		categoryID   sql.NullInt64
		createdAt    string
		categoryName sql.NullString
		categoryType sql.NullString
	)
	err := s.Scan(&txn.ID, &txn.Description, &txn.Amount.Cents, &txn.OccurredOn,
		&categoryID, &createdAt, &categoryName, &categoryType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, storageErr("scan transaction", err)
	}

	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return core.Transaction{}, storageErr("scan transaction", err)
	}
	txn.CreatedAt = ts

	if categoryID.Valid {
		id := categoryID.Int64
		txn.CategoryID = &id
	}
	if categoryName.Valid {
		name := categoryName.String
		txn.CategoryName = &name
	}
	if categoryType.Valid {
		typ := core.CategoryType(categoryType.String)
		txn.CategoryType = &typ
	}
	return txn, nil
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
