package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/sheets"
	"pocket/internal/storage"
)

const (
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item is marked failed (default: 5)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      5,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// RecordLoader flattens the current state of an outbox row's record. It
// returns storage.ErrNotFound once the record is gone.
type RecordLoader interface {
	Load(ctx context.Context, item storage.SyncItem) (sheets.Record, error)
}

// BatchResult counts the outcome of one pass over the outbox.
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// SyncProcessor drains the SQLite outbox into the remote mirror.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	mirror  sheets.RecordMirror
	loader  RecordLoader
	config  SyncProcessorConfig
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time

	// batchMu serializes the poll loop with manual RunOnce calls
	batchMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	mirror sheets.RecordMirror,
	loader RecordLoader,
	config SyncProcessorConfig,
	m *metrics.Metrics,
	logger *log.Logger,
) *SyncProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncProcessor{
		storage: storage,
		mirror:  mirror,
		loader:  loader,
		config:  config,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentSync),
		now:     time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Reset any stale processing items from previous crashes
	if err := p.storage.ResetStaleProcessing(ctx); err != nil {
		p.logger.WarnContext(ctx, "Failed to reset stale processing items", log.FieldError, err)
	}

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// RunOnce processes one batch immediately. It backs the manual sync trigger.
func (p *SyncProcessor) RunOnce(ctx context.Context) (BatchResult, error) {
	return p.processBatch(ctx)
}

func (p *SyncProcessor) processBatch(ctx context.Context) (BatchResult, error) {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	var result BatchResult
	items, err := p.storage.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to dequeue sync batch", log.FieldError, err)
		return result, fmt.Errorf("dequeue sync batch: %w", err)
	}
	defer p.refreshQueueGauge(ctx)

	if len(items) == 0 {
		return result, nil
	}

	p.logger.DebugContext(ctx, "Processing sync batch", "count", len(items))

	for _, item := range items {
		if p.stopping(ctx) {
			break
		}

		if err := p.storage.MarkSyncProcessing(ctx, item.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// claimed by a concurrent processor
				p.metrics.SyncItem(item.Entity, metrics.SyncSkipped)
				continue
			}
			p.logger.ErrorContext(ctx, "Failed to mark item as processing",
				"id", item.ID, log.FieldError, err)
			continue
		}

		result.Processed++
		if err := p.processItem(ctx, item); err != nil {
			if p.handleFailure(ctx, item, err) {
				result.Failed++
			} else {
				result.Retried++
			}
			continue
		}
		p.handleSuccess(ctx, item)
		result.Succeeded++
	}

	return result, nil
}

func (p *SyncProcessor) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	p.mu.Lock()
	stopCh := p.stopCh
	p.mu.Unlock()
	if stopCh == nil {
		return false
	}
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

func (p *SyncProcessor) processItem(ctx context.Context, item storage.SyncItem) error {
	switch item.Operation {
	case storage.SyncUpsert:
		record, err := p.loader.Load(ctx, item)
		if errors.Is(err, storage.ErrNotFound) {
			// deleted after enqueue; its delete row follows
			p.logger.DebugContext(ctx, "Record gone before sync, skipping upsert",
				log.FieldEntity, item.Entity, log.FieldRecordID, item.RecordID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load %s %s: %w", item.Entity, item.RecordID, err)
		}
		if err := p.mirror.Upsert(ctx, record); err != nil {
			return fmt.Errorf("upsert to mirror: %w", err)
		}
	case storage.SyncDelete:
		if err := p.mirror.Delete(ctx, item.Entity, item.RecordID); err != nil {
			return fmt.Errorf("delete from mirror: %w", err)
		}
	default:
		return fmt.Errorf("unknown operation: %s", item.Operation)
	}

	p.logger.InfoContext(ctx, "Synced record to mirror",
		log.FieldEntity, item.Entity,
		log.FieldRecordID, item.RecordID,
		log.FieldOperation, string(item.Operation))
	return nil
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item storage.SyncItem) {
	if err := p.storage.MarkSyncComplete(ctx, item.ID); err != nil {
		p.logger.ErrorContext(ctx, "Failed to mark sync complete",
			"id", item.ID, log.FieldError, err)
	}
	p.metrics.SyncItem(item.Entity, metrics.SyncOK)
}

// handleFailure schedules a retry with exponential backoff, or marks the
// item failed once MaxRetries attempts have been made. It reports whether
// the item failed permanently.
func (p *SyncProcessor) handleFailure(ctx context.Context, item storage.SyncItem, processErr error) bool {
	attempt := item.Attempts + 1
	p.logger.WarnContext(ctx, "Sync processing failed",
		"id", item.ID,
		log.FieldOperation, string(item.Operation),
		log.FieldAttempt, attempt,
		log.FieldError, processErr)

	if attempt >= p.config.MaxRetries {
		if err := p.storage.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark sync as failed",
				"id", item.ID, log.FieldError, err)
		}
		p.metrics.SyncItem(item.Entity, metrics.SyncFailed)
		p.logger.ErrorContext(ctx, "Sync item failed permanently after max retries",
			"id", item.ID,
			log.FieldEntity, item.Entity,
			log.FieldRecordID, item.RecordID,
			log.FieldAttempt, attempt)
		return true
	}

	next := p.now().Add(RetryDelay(item.Attempts))
	if err := p.storage.IncrementSyncAttempt(ctx, item.ID, processErr.Error(), next); err != nil {
		p.logger.ErrorContext(ctx, "Failed to increment sync attempt",
			"id", item.ID, log.FieldError, err)
	}
	p.metrics.SyncItem(item.Entity, metrics.SyncRetry)
	return false
}

// RetryDelay is the wait before the next attempt after attempts failures:
// 2s doubled per attempt, capped at five minutes.
func RetryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	delay := baseRetryDelay
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupAge)
	n, err := p.storage.CleanupCompletedSyncs(ctx, cutoff)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to cleanup completed syncs", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.DebugContext(ctx, "Cleaned up completed syncs", "count", n)
	}
}

func (p *SyncProcessor) refreshQueueGauge(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	if _, err := p.Stats(ctx); err != nil {
		p.logger.DebugContext(ctx, "Failed to read sync queue stats", log.FieldError, err)
	}
}

// Stats returns current queue statistics
func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncQueueStats, error) {
	s, err := p.storage.SyncQueueStats(ctx)
	if err != nil {
		return storage.SyncQueueStats{}, err
	}
	p.metrics.SyncQueue(s.Pending, s.Processing, s.Completed, s.Failed)
	return s, nil
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) (int64, error) {
	n, err := p.storage.RetryFailedSyncs(ctx)
	if err != nil {
		return 0, err
	}
	p.logger.InfoContext(ctx, "Requeued failed sync items", "count", n)
	return n, nil
}
