package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"pocket/internal/export"
	"pocket/internal/log"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Analytics.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExportTransactions renders the filtered transactions as a download.
// The document is built in memory so a rendering failure still yields a
// clean error response.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	f, err := ParseTransactionFilter(q, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.deps.Transactions.Filter(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period := export.PeriodFor(f, s.deps.Transactions.Now())
	var buf bytes.Buffer
	if err := export.Write(&buf, format, txs, period); err != nil {
		writeError(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transactions exported",
		log.FieldOperation, log.OpExport,
		"format", string(format),
		"count", len(txs))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(period)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) syncUnavailable(w http.ResponseWriter) bool {
	if s.deps.Sync != nil {
		return false
	}
	ErrorResponse(http.StatusServiceUnavailable, "sync is not configured").Write(w)
	return true
}

// handleSyncNow drains one batch of the outbox immediately.
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if s.syncUnavailable(w) {
		return
	}
	result, err := s.deps.Sync.RunOnce(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.syncUnavailable(w) {
		return
	}
	st, err := s.deps.Sync.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSyncRetry(w http.ResponseWriter, r *http.Request) {
	if s.syncUnavailable(w) {
		return
	}
	n, err := s.deps.Sync.RetryFailed(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"requeued": n})
}
