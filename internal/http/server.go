package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"pocket/internal/auth"
	"pocket/internal/cache"
	"pocket/internal/config"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/middleware/ratelimit"
	"pocket/internal/middleware/security"
	"pocket/internal/middleware/trace"
	"pocket/internal/services"
	"pocket/internal/storage"
)

const (
	dashboardCacheSize     = 500
	cacheCleanupInterval   = 10 * time.Minute
	defaultDashboardTTL    = time.Minute
	readHeaderTimeout      = 10 * time.Second
	requestHandlingTimeout = 30 * time.Second
)

// Deps are the collaborators the server dispatches to. Sync may be nil when
// no mirror backend is configured; the sync endpoints then answer 503.
type Deps struct {
	Storage      *storage.SQLiteRepository
	Auth         *auth.PasswordAuthenticator
	Tokens       *auth.JWTManager
	Transactions *services.TransactionService
	Tasks        *services.TaskService
	Payouts      *services.PayoutService
	Analytics    *services.AnalyticsService
	Sync         *services.SyncProcessor
	Metrics      *metrics.Metrics
	Logger       *log.Logger
	Location     *time.Location
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	loc      *time.Location
	limiter  *ratelimit.Limiter
	detector *security.Detector

	dashboardCache *cache.LRUCache[Dashboard]
	caches         *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	loc := deps.Location
	if loc == nil {
		loc = cfg.Location()
	}

	detector, err := security.NewDetector(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	ttl := cfg.DashboardCacheTTL
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}

	s := &Server{
		deps:           deps,
		logger:         logger,
		loc:            loc,
		detector:       detector,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		dashboardCache: cache.NewLRUCache[Dashboard](dashboardCacheSize, ttl),
		caches:         cache.NewManager(logger),
	}
	s.caches.Register(s.dashboardCache)
	s.caches.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = log.Middleware(logger, trace.RequestID)(handler)
	handler = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(handler)
	handler = detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      requestHandlingTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.deps.Metrics.Instrument(pattern, h))
	}
	requireAuth := auth.RequireAuth(s.deps.Tokens, writeError)
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.deps.Metrics.Instrument(pattern, requireAuth(h)))
	}
	// Writes drop the caller's cached dashboard.
	write := func(pattern string, h http.HandlerFunc) {
		private(pattern, s.mutating(h))
	}

	public("GET /healthz", handleHealth)
	public("GET /readyz", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	public("POST /api/auth/register", s.handleRegister)
	public("POST /api/auth/login", s.handleLogin)

	private("GET /api/transactions", s.handleListTransactions)
	write("POST /api/transactions", s.handleCreateTransaction)
	private("GET /api/transactions/search", s.handleSearchTransactions)
	private("GET /api/transactions/stats", s.handleTransactionStats)
	private("GET /api/transactions/{id}", s.handleGetTransaction)
	write("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	write("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	private("GET /api/tasks", s.handleListTasks)
	write("POST /api/tasks", s.handleCreateTask)
	private("GET /api/tasks/search", s.handleSearchTasks)
	private("GET /api/tasks/stats", s.handleTaskStats)
	private("GET /api/tasks/{id}", s.handleGetTask)
	write("PUT /api/tasks/{id}", s.handleUpdateTask)
	write("DELETE /api/tasks/{id}", s.handleDeleteTask)
	write("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	write("POST /api/tasks/{id}/subtasks/{sid}/toggle", s.handleToggleSubtask)

	private("GET /api/payouts", s.handleListPayouts)
	write("POST /api/payouts", s.handleCreatePayout)
	private("GET /api/payouts/stats", s.handlePayoutStats)
	private("GET /api/payouts/{id}", s.handleGetPayout)
	write("PUT /api/payouts/{id}", s.handleUpdatePayout)
	write("DELETE /api/payouts/{id}", s.handleDeletePayout)
	write("POST /api/payouts/{id}/resolve", s.handleResolvePayout)
	write("POST /api/payouts/{id}/cancel", s.handleCancelPayout)
	private("GET /api/people", s.handlePeople)

	private("GET /api/dashboard", s.handleDashboard)
	private("GET /api/analytics", s.handleAnalytics)
	private("GET /api/export/transactions", s.handleExportTransactions)

	private("POST /api/sync", s.handleSyncNow)
	private("GET /api/sync/status", s.handleSyncStatus)
	private("POST /api/sync/retry", s.handleSyncRetry)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

// Shutdown stops background cleanup and then the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Storage.Ping(ctx); err != nil {
		log.LogError(r.Context(), "Readiness check failed", err, "ready", log.ErrorTypeDatabase, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// mutating invalidates the caller's dashboard once a write succeeds.
func (s *Server) mutating(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if rec.status < http.StatusBadRequest {
			s.dashboardCache.Delete(auth.UserID(r.Context()))
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
