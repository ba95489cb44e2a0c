package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pocket/internal/core"
	"pocket/internal/stats"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"title":"Lunch","amount":"12.50"}`, nil},
		{"bare amount", `{"title":"Lunch","amount":12.5}`, nil},
		{"empty", ``, errBadRequest},
		{"malformed", `{"title":`, errBadRequest},
		{"unknown field", `{"title":"x","bogus":1}`, errBadRequest},
		{"trailing", `{"title":"x"} {"title":"y"}`, errBadRequest},
		{"bad amount", `{"title":"x","amount":"abc"}`, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst transactionRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				if dst.Amount.Cents != 1250 {
					t.Errorf("amount = %d, want 1250", dst.Amount.Cents)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("decodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	got, err := parseDate("2024-03-15", rome)
	if err != nil {
		t.Fatalf("parseDate() error = %v", err)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, rome); !got.Equal(want) {
		t.Errorf("parseDate(date only) = %v, want %v", got, want)
	}

	got, err = parseDate("2024-03-15T10:30:00Z", rome)
	if err != nil {
		t.Fatalf("parseDate(RFC3339) error = %v", err)
	}
	if want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("parseDate(RFC3339) = %v, want %v", got, want)
	}

	if got, err := parseDate("  ", rome); err != nil || !got.IsZero() {
		t.Errorf("parseDate(blank) = %v, %v; want zero, nil", got, err)
	}
	if _, err := parseDate("15/03/2024", rome); !errors.Is(err, errBadRequest) {
		t.Errorf("parseDate(bad) error = %v, want errBadRequest", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Groceries  ", "Groceries"},
		{"Rent\x00\x07", "Rent"},
		{"line\nbreak", "line\nbreak"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTransactionFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    stats.TransactionFilter
		wantErr bool
	}{
		{
			name:  "empty",
			query: "",
			want:  stats.TransactionFilter{},
		},
		{
			name:  "type and timeline",
			query: "type=Expense&timeline=30days&category=food",
			want:  stats.TransactionFilter{Type: stats.TypeExpense, Timeline: stats.Timeline30Days, Category: "food"},
		},
		{
			name:  "range implies custom",
			query: "start=2024-03-01&end=2024-03-31",
			want: stats.TransactionFilter{
				Timeline:  stats.TimelineCustom,
				StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2024, 3, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC),
			},
		},
		{
			name:  "rfc3339 end kept as given",
			query: "end=2024-03-31T10:00:00Z",
			want: stats.TransactionFilter{
				Timeline: stats.TimelineCustom,
				EndDate:  time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC),
			},
		},
		{name: "unknown type", query: "type=refund", wantErr: true},
		{name: "unknown timeline", query: "timeline=decade", wantErr: true},
		{name: "bad date", query: "start=yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseTransactionFilter(q, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTransactionFilter(%q) = %+v, want error", tt.query, got)
				}
				if status, _ := statusFor(err); status != http.StatusBadRequest {
					t.Errorf("status for %v = %d, want 400", err, status)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTransactionFilter(%q) error = %v", tt.query, err)
			}
			if got.Type != tt.want.Type || got.Timeline != tt.want.Timeline || got.Category != tt.want.Category ||
				!got.StartDate.Equal(tt.want.StartDate) || !got.EndDate.Equal(tt.want.EndDate) {
				t.Errorf("ParseTransactionFilter(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestTransactionFilterIncludesWholeEndDay(t *testing.T) {
	q, _ := url.ParseQuery("start=2024-03-01&end=2024-03-10")
	f, err := ParseTransactionFilter(q, time.UTC)
	if err != nil {
		t.Fatalf("ParseTransactionFilter() error = %v", err)
	}
	txs := []core.Transaction{
		{ID: "first", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "afternoon", Date: time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)},
		{ID: "late", Date: time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)},
		{ID: "next-day", Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	got := stats.FilterTransactions(txs, f, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	var ids []string
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	if strings.Join(ids, ",") != "first,afternoon,late" {
		t.Errorf("filtered ids = %v, want [first afternoon late]", ids)
	}
}

func TestParseTaskFilter(t *testing.T) {
	q, _ := url.ParseQuery("priority=HIGH&status=overdue&date=2024-03-15&category=home")
	f, err := ParseTaskFilter(q, time.UTC)
	if err != nil {
		t.Fatalf("ParseTaskFilter() error = %v", err)
	}
	if f.Priority != core.PriorityHigh || f.Status != core.StatusOverdue || f.Category != "home" {
		t.Errorf("ParseTaskFilter() = %+v", f)
	}
	if f.Date == nil || !f.Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", f.Date)
	}

	q, _ = url.ParseQuery("priority=urgent")
	if _, err := ParseTaskFilter(q, time.UTC); !errors.Is(err, stats.ErrInvalidFilter) {
		t.Errorf("ParseTaskFilter(urgent) error = %v, want ErrInvalidFilter", err)
	}
}
