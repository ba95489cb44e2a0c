package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInstrument_CountsByRouteAndStatus(t *testing.T) {
	m := New()
	h := m.Instrument("GET /api/things/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/1", nil))
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `pocket_http_requests_total{code="404",method="GET",route="GET /api/things/{id}"} 3`
	if !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("metrics output missing %q", want)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.RecordChange("task", "create")
	m.SyncItem("task", SyncOK)
	m.AnalyticsReport("local")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		`pocket_record_changes_total{entity="task",operation="create"} 1`,
		`pocket_sync_items_total{entity="task",result="ok"} 1`,
		`pocket_analytics_reports_total{source="local"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.RecordChange("task", "create")
	m.SyncItem("task", SyncFailed)
	m.SyncQueue(1, 2, 3, 4)
	m.AnalyticsReport("remote")
	m.Reminder("cancel", "ok")
	m.RateLimited()
	m.DashboardLookup(true)

	called := false
	h := m.Instrument("GET /", http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("nil metrics must pass requests through")
	}
}
