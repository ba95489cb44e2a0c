package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pocket/internal/core"
)

const transactionColumns = `id, user_id, title, amount_cents, type, category, payment_method, notes, date, created_at, updated_at`

// CreateTransaction inserts t for its user and enqueues a mirror upsert.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now().UTC()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.Title, t.Amount.Cents, string(t.Type), t.Category, t.PaymentMethod, t.Notes,
			toMillis(t.Date), toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return enqueueSync(ctx, tx, EntityTransaction, t.ID, t.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// UpdateTransaction replaces the editable fields of an existing transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now().UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET title = ?, amount_cents = ?, type = ?, category = ?, payment_method = ?,
			 notes = ?, date = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			t.Title, t.Amount.Cents, string(t.Type), t.Category, t.PaymentMethod, t.Notes,
			toMillis(t.Date), toMillis(now), t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityTransaction, t.ID, t.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	now := r.now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityTransaction, id, userID, SyncDelete, now)
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	return t, err
}

// ListTransactions returns the user's transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		typ                    string
		date, created, updated int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &typ, &t.Category, &t.PaymentMethod,
		&t.Notes, &date, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Date = fromMillis(date)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}
