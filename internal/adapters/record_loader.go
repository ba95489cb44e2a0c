// Package adapters bridges the SQLite repository to the remote mirror.
package adapters

import (
	"context"
	"fmt"

	"pocket/internal/sheets"
	"pocket/internal/storage"
)

// RecordLoader reads the current state of an outbox row's record and
// flattens it into a mirror row.
type RecordLoader struct {
	storage *storage.SQLiteRepository
}

func NewRecordLoader(storage *storage.SQLiteRepository) *RecordLoader {
	return &RecordLoader{storage: storage}
}

// Load returns storage.ErrNotFound when the record no longer exists.
func (l *RecordLoader) Load(ctx context.Context, item storage.SyncItem) (sheets.Record, error) {
	switch item.Entity {
	case storage.EntityTransaction:
		t, err := l.storage.GetTransaction(ctx, item.UserID, item.RecordID)
		if err != nil {
			return sheets.Record{}, err
		}
		return sheets.TransactionRecord(t), nil
	case storage.EntityTask:
		t, err := l.storage.GetTask(ctx, item.UserID, item.RecordID)
		if err != nil {
			return sheets.Record{}, err
		}
		return sheets.TaskRecord(t), nil
	case storage.EntityPayout:
		p, err := l.storage.GetPayout(ctx, item.UserID, item.RecordID)
		if err != nil {
			return sheets.Record{}, err
		}
		return sheets.PayoutRecord(p), nil
	case storage.EntityPerson:
		p, err := l.storage.GetPerson(ctx, item.UserID, item.RecordID)
		if err != nil {
			return sheets.Record{}, err
		}
		return sheets.PersonRecord(p), nil
	default:
		return sheets.Record{}, fmt.Errorf("unknown entity %q", item.Entity)
	}
}
