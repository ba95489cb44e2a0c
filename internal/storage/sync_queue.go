package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SyncOperation is what the mirror must do with a record.
type SyncOperation string

const (
	SyncUpsert SyncOperation = "upsert"
	SyncDelete SyncOperation = "delete"
)

// SyncStatus is the lifecycle state of an outbox row.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// SyncItem is one outbox row.
type SyncItem struct {
	ID            int64
	Entity        string
	RecordID      string
	UserID        string
	Operation     SyncOperation
	Status        SyncStatus
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SyncQueueStats counts outbox rows per status.
type SyncQueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func enqueueSync(ctx context.Context, tx *sql.Tx, entity, recordID, userID string, op SyncOperation, now time.Time) error {
	ms := toMillis(now)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sync_queue (entity, record_id, user_id, operation, status, next_attempt_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entity, recordID, userID, string(op), string(SyncPending), ms, ms, ms)
	if err != nil {
		return fmt.Errorf("enqueue sync: %w", err)
	}
	return nil
}

// DequeueSyncBatch returns up to limit pending rows whose next attempt is due,
// oldest first.
func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity, record_id, user_id, operation, status, attempts, last_error, next_attempt_at,
		 created_at, updated_at FROM sync_queue
		 WHERE status = ? AND next_attempt_at <= ? ORDER BY id LIMIT ?`,
		string(SyncPending), toMillis(r.now()), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue sync batch: %w", err)
	}
	defer rows.Close()

	var items []SyncItem
	for rows.Next() {
		var (
			it                     SyncItem
			op, status             string
			next, created, updated int64
		)
		if err := rows.Scan(&it.ID, &it.Entity, &it.RecordID, &it.UserID, &op, &status, &it.Attempts,
			&it.LastError, &next, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		it.Operation = SyncOperation(op)
		it.Status = SyncStatus(status)
		it.NextAttemptAt = fromMillis(next)
		it.CreatedAt = fromMillis(created)
		it.UpdatedAt = fromMillis(updated)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("set sync status %s: %w", status, err)
	}
	return checkAffected(res)
}

// MarkSyncProcessing claims a pending row. It returns ErrNotFound when the
// row is gone or another processor claimed it first.
func (r *SQLiteRepository) MarkSyncProcessing(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(SyncProcessing), toMillis(r.now()), id, string(SyncPending))
	if err != nil {
		return fmt.Errorf("claim sync item: %w", err)
	}
	return checkAffected(res)
}

func (r *SQLiteRepository) MarkSyncComplete(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncCompleted)
}

// IncrementSyncAttempt records a failed attempt and puts the row back to
// pending until nextAttempt.
func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, lastErr string, nextAttempt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(SyncPending), lastErr, toMillis(nextAttempt), toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("increment sync attempt: %w", err)
	}
	return checkAffected(res)
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, lastErr string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		string(SyncFailed), lastErr, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	return checkAffected(res)
}

// ResetStaleProcessing returns rows left in processing by a crashed run
// to pending.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`,
		string(SyncPending), toMillis(r.now()), string(SyncProcessing))
	if err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	return nil
}

// RetryFailedSyncs makes every failed row eligible again with a fresh
// attempt budget. It returns the number of rows reset.
func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) (int64, error) {
	now := toMillis(r.now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = 0, next_attempt_at = ?, updated_at = ? WHERE status = ?`,
		string(SyncPending), now, now, string(SyncFailed))
	if err != nil {
		return 0, fmt.Errorf("retry failed syncs: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`,
		string(SyncCompleted), toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("cleanup completed syncs: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) SyncQueueStats(ctx context.Context) (SyncQueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return SyncQueueStats{}, fmt.Errorf("sync queue stats: %w", err)
	}
	defer rows.Close()

	var stats SyncQueueStats
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return SyncQueueStats{}, fmt.Errorf("scan sync stats: %w", err)
		}
		switch SyncStatus(status) {
		case SyncPending:
			stats.Pending = n
		case SyncProcessing:
			stats.Processing = n
		case SyncCompleted:
			stats.Completed = n
		case SyncFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}
