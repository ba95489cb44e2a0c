package http

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"pocket/internal/auth"
	"pocket/internal/log"
	"pocket/internal/stats"
)

// Dashboard is the combined home screen view.
type Dashboard struct {
	Transactions stats.TransactionStats `json:"transactions"`
	Tasks        stats.TaskStats        `json:"tasks"`
	Payouts      stats.PayoutStats      `json:"payouts"`
}

// handleDashboard loads the three summaries concurrently and caches the
// result per user until the next write or the cache TTL. Concurrent requests
// from one user share a single load.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	d, hit, err := s.dashboardCache.GetOrLoad(userID, func() (Dashboard, error) {
		return s.loadDashboard(context.WithoutCancel(ctx))
	})
	s.deps.Metrics.DashboardLookup(hit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hit {
		log.FromContext(ctx).DebugContext(ctx, "Dashboard cache hit", log.FieldUserID, userID)
	}
	writeJSON(w, http.StatusOK, d)
}

// loadDashboard runs detached from the request: other requests waiting on
// the same load must not fail when the first client goes away.
func (s *Server) loadDashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Transactions, err = s.deps.Transactions.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Tasks, err = s.deps.Tasks.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Payouts, err = s.deps.Payouts.Stats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
