package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"pocket/internal/core"
	"pocket/internal/stats"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func sample() []core.Transaction {
	return []core.Transaction{
		{Title: "Salary", Amount: core.Money{Cents: 250000}, Type: core.Income, Category: "work", PaymentMethod: "bank", Date: now},
		{Title: "Groceries, weekly", Amount: core.Money{Cents: 4550}, Type: core.Expense, Category: "food", PaymentMethod: "card", Notes: "<b>bio</b>", Date: now.AddDate(0, 0, -1)},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sample()); err != nil {
		t.Fatalf("CSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if strings.Join(records[0], ",") != "Date,Title,Type,Category,Payment Method,Amount,Notes" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][5] != "2500.00" || records[2][5] != "-45.50" {
		t.Errorf("amounts = %q, %q", records[1][5], records[2][5])
	}
	if records[2][1] != "Groceries, weekly" || records[2][0] != "2024-03-14" {
		t.Errorf("row = %v", records[2])
	}
}

func TestWrite_CSVStartsWithHeader(t *testing.T) {
	var buf bytes.Buffer
	p := Period{Label: "Custom range", From: now.AddDate(0, 0, -7), To: now}
	if err := Write(&buf, FormatCSV, sample(), p); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 || records[0][0] != "Date" {
		t.Errorf("records = %v, want header plus 2 rows", records)
	}
}

func TestHTML_EscapesAndTotals(t *testing.T) {
	var buf bytes.Buffer
	if err := HTML(&buf, sample(), Period{Label: "Last 7 days", From: now.AddDate(0, 0, -7), To: now}); err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Last 7 days", "2024-03-08 to 2024-03-15", "2454.50", "-45.50", "&lt;b&gt;bio&lt;/b&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(out, "<b>bio</b>") {
		t.Error("notes were not escaped")
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, sample(), Period{Label: "This month"}); err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestPeriodFor(t *testing.T) {
	p := PeriodFor(stats.TransactionFilter{Timeline: stats.TimelineMonth}, now)
	if p.Label != "This month" || !p.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !p.To.Equal(now) {
		t.Errorf("month period = %+v", p)
	}

	start, end := now.AddDate(0, 0, -3), now
	p = PeriodFor(stats.TransactionFilter{Timeline: stats.TimelineCustom, StartDate: start, EndDate: end}, now)
	if !p.From.Equal(start) || !p.To.Equal(end) {
		t.Errorf("custom period = %+v", p)
	}

	if p := PeriodFor(stats.TransactionFilter{}, now); p.HasRange() || p.Label != "All time" {
		t.Errorf("open period = %+v", p)
	}
}

func TestFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	if err != nil || f != FormatPDF {
		t.Fatalf("ParseFormat() = %q, %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("xlsx should be rejected")
	}
	if got := FormatCSV.Filename(Period{Label: "Last 30 days"}); got != "transactions-last-30-days.csv" {
		t.Errorf("Filename() = %q", got)
	}
}
