package services

import (
	"context"
	"fmt"

	"pocket/internal/analytics"
	"pocket/internal/core"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/storage"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// LocalNotice tells the user the report was computed on this server.
const LocalNotice = "Analytics service unavailable, showing locally computed figures."

// Analyzer produces a remote analytics report.
type Analyzer interface {
	Analyze(ctx context.Context, userID string, txs []core.Transaction) (analytics.Report, error)
}

type AnalyticsResult struct {
	analytics.Report
	Source string `json:"source"`
	Notice string `json:"notice,omitempty"`
}

// AnalyticsService prefers the remote analyzer and falls back to the local
// aggregator. It never fails because the remote is unavailable.
type AnalyticsService struct {
	storage *storage.SQLiteRepository
	remote  Analyzer
	metrics *metrics.Metrics
	now     Clock
}

// NewAnalyticsService accepts a nil remote, in which case every report is local.
func NewAnalyticsService(storage *storage.SQLiteRepository, remote Analyzer, m *metrics.Metrics, now Clock) *AnalyticsService {
	if now == nil {
		now = LocalClock(nil)
	}
	return &AnalyticsService{storage: storage, remote: remote, metrics: m, now: now}
}

func (s *AnalyticsService) Report(ctx context.Context) (AnalyticsResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return AnalyticsResult{}, err
	}
	txs, err := s.storage.ListTransactions(ctx, userID)
	if err != nil {
		return AnalyticsResult{}, fmt.Errorf("list transactions: %w", err)
	}

	if s.remote != nil {
		report, err := s.remote.Analyze(ctx, userID, txs)
		if err == nil {
			s.metrics.AnalyticsReport(SourceRemote)
			return AnalyticsResult{Report: report, Source: SourceRemote}, nil
		}
		log.FromContext(ctx).WarnContext(ctx, "Remote analytics failed, using local report",
			log.FieldUserID, userID, log.FieldError, err)
	}

	s.metrics.AnalyticsReport(SourceLocal)
	return AnalyticsResult{
		Report: analytics.LocalReport(txs, s.now()),
		Source: SourceLocal,
		Notice: LocalNotice,
	}, nil
}
