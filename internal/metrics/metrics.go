// Package metrics exposes Prometheus collectors for the API and worker.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pocket"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	recordChanges   *prometheus.CounterVec
	syncItems       *prometheus.CounterVec
	syncQueue       *prometheus.GaugeVec
	analytics       *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	rateLimited     prometheus.Counter
	dashboardLookup *prometheus.CounterVec
}

// New registers every collector on a private registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		recordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "record_changes_total",
			Help: "Successful record mutations by entity and operation.",
		}, []string{"entity", "operation"}),
		syncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "items_total",
			Help: "Outbox rows processed by entity and result.",
		}, []string{"entity", "result"}),
		syncQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sync", Name: "queue_rows",
			Help: "Outbox rows by status at the last poll.",
		}, []string{"status"}),
		analytics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "analytics_reports_total",
			Help: "Analytics reports by the source that produced them.",
		}, []string{"source"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminder_messages_total",
			Help: "Task reminder messages handled by the worker.",
		}, []string{"op", "result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		dashboardLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dashboard_cache_lookups_total",
			Help: "Dashboard cache lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.recordChanges, m.syncItems, m.syncQueue,
		m.analytics, m.reminders, m.rateLimited, m.dashboardLookup,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument wraps h so that requests are counted and timed under route.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordChange(entity, operation string) {
	if m == nil {
		return
	}
	m.recordChanges.WithLabelValues(entity, operation).Inc()
}

// Sync results.
const (
	SyncOK      = "ok"
	SyncRetry   = "retry"
	SyncFailed  = "failed"
	SyncSkipped = "skipped"
)

func (m *Metrics) SyncItem(entity, result string) {
	if m == nil {
		return
	}
	m.syncItems.WithLabelValues(entity, result).Inc()
}

// SyncQueue records the outbox depth per status.
func (m *Metrics) SyncQueue(pending, processing, completed, failed int64) {
	if m == nil {
		return
	}
	m.syncQueue.WithLabelValues("pending").Set(float64(pending))
	m.syncQueue.WithLabelValues("processing").Set(float64(processing))
	m.syncQueue.WithLabelValues("completed").Set(float64(completed))
	m.syncQueue.WithLabelValues("failed").Set(float64(failed))
}

func (m *Metrics) AnalyticsReport(source string) {
	if m == nil {
		return
	}
	m.analytics.WithLabelValues(source).Inc()
}

func (m *Metrics) Reminder(op, result string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(op, result).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) DashboardLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.dashboardLookup.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
