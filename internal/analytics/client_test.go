package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pocket/internal/core"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Title: "Salary", Amount: core.Money{Cents: 300000}, Type: core.Income, Category: "work", Date: now},
		{ID: "2", Title: "Rent", Amount: core.Money{Cents: 120000}, Type: core.Expense, Category: "housing", Date: now},
		{ID: "3", Title: "Rent", Amount: core.Money{Cents: 100000}, Type: core.Expense, Category: "housing", Date: now.AddDate(0, -1, 0)},
		{ID: "4", Title: "Pizza", Amount: core.Money{Cents: 2000}, Type: core.Expense, Category: "food", Date: now},
	}
}

func TestClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.UserID != "u1" || len(req.Transactions) != 4 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":{"totalIncome":"10.00"},"insights":["remote says hi"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	report, err := c.Analyze(context.Background(), "u1", sampleTransactions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.Summary.TotalIncome.Cents != 1000 || len(report.Insights) != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestClient_AnalyzeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"bad body", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("not json")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Analyze(context.Background(), "u1", nil)
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("error = %v, want ErrUnavailable", err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		if _, err := NewClient(url, time.Second).Analyze(context.Background(), "u1", nil); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("error = %v, want ErrUnavailable", err)
		}
	})
}

func TestLocalReport(t *testing.T) {
	report := LocalReport(sampleTransactions(), now)

	if report.Summary.TotalBalance.Cents != 300000-222000 {
		t.Errorf("balance = %s", report.Summary.TotalBalance)
	}
	if len(report.Categories) != 2 || report.Categories[0].Category != "housing" {
		t.Errorf("categories = %+v", report.Categories)
	}
	if len(report.Monthly) != 2 || report.Monthly[0].Month != "2024-02" {
		t.Errorf("monthly = %+v", report.Monthly)
	}

	joined := strings.Join(report.Insights, "\n")
	if !strings.Contains(joined, "housing") || !strings.Contains(joined, "22% more") {
		t.Errorf("insights = %q", report.Insights)
	}
}
