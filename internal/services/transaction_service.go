package services

import (
	"context"
	"fmt"
	"time"

	"pocket/internal/core"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/stats"
	"pocket/internal/storage"
)

// TransactionService manages a user's income and expense records.
type TransactionService struct {
	storage *storage.SQLiteRepository
	metrics *metrics.Metrics
	now     Clock
}

func NewTransactionService(storage *storage.SQLiteRepository, m *metrics.Metrics, now Clock) *TransactionService {
	if now == nil {
		now = LocalClock(nil)
	}
	return &TransactionService{storage: storage, metrics: m, now: now}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = userID

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.metrics.RecordChange(storage.EntityTransaction, log.OpCreate)
	log.LogRecordChange(ctx, log.OpCreate, storage.EntityTransaction, created.ID, userID)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = userID

	updated, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", translate(err))
	}
	s.metrics.RecordChange(storage.EntityTransaction, log.OpUpdate)
	log.LogRecordChange(ctx, log.OpUpdate, storage.EntityTransaction, updated.ID, userID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", translate(err))
	}
	s.metrics.RecordChange(storage.EntityTransaction, log.OpDelete)
	log.LogRecordChange(ctx, log.OpDelete, storage.EntityTransaction, id, userID)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	t, err := s.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, translate(err)
	}
	return t, nil
}

// List returns every transaction of the caller, newest first.
func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.storage.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Filter(ctx context.Context, f stats.TransactionFilter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return stats.FilterTransactions(txs, f, s.now()), nil
}

func (s *TransactionService) Search(ctx context.Context, query string) ([]core.Transaction, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return stats.SearchTransactions(txs, query), nil
}

func (s *TransactionService) Stats(ctx context.Context) (stats.TransactionStats, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return stats.TransactionStats{}, err
	}
	return stats.SummarizeTransactions(txs, s.now()), nil
}

// Now is the service clock, shared with callers that render reports.
func (s *TransactionService) Now() time.Time { return s.now() }
