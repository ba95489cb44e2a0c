// Package export renders transaction lists as CSV, HTML or PDF reports.
// Callers pass already filtered data; nothing here filters or sorts.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pocket/internal/core"
	"pocket/internal/stats"
)

const dateLayout = "2006-01-02"

// Period describes the range a report covers.
type Period struct {
	Label string
	From  time.Time
	To    time.Time
}

func (p Period) HasRange() bool { return !p.From.IsZero() && !p.To.IsZero() }

var timelineLabels = map[stats.Timeline]string{
	stats.TimelineAll:    "All time",
	stats.TimelineToday:  "Today",
	stats.Timeline7Days:  "Last 7 days",
	stats.Timeline30Days: "Last 30 days",
	stats.TimelineMonth:  "This month",
	stats.TimelineYear:   "This year",
	stats.TimelineCustom: "Custom range",
}

// PeriodFor describes the period a transaction filter selects at now.
func PeriodFor(f stats.TransactionFilter, now time.Time) Period {
	p := Period{Label: timelineLabels[f.Timeline]}
	if f.Timeline == stats.TimelineCustom {
		p.From, p.To = f.StartDate, f.EndDate
		return p
	}
	if since, ok := f.Timeline.Since(now); ok {
		p.From, p.To = since, now
	}
	return p
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename is a download name such as "transactions-this-month.csv".
func (f Format) Filename(p Period) string {
	slug := strings.ToLower(strings.Join(strings.Fields(p.Label), "-"))
	if slug == "" {
		slug = "all-time"
	}
	return "transactions-" + slug + "." + string(f)
}

// Write renders txs in format f.
func Write(w io.Writer, f Format, txs []core.Transaction, p Period) error {
	switch f {
	case FormatHTML:
		return HTML(w, txs, p)
	case FormatPDF:
		return PDF(w, txs, p)
	default:
		return CSV(w, txs)
	}
}

// row is the display form shared by every format.
type row struct {
	Date          string
	Title         string
	Type          string
	Category      string
	PaymentMethod string
	Amount        string
	Notes         string
}

func toRow(t core.Transaction) row {
	return row{
		Date:          t.Date.Format(dateLayout),
		Title:         t.Title,
		Type:          string(t.Type),
		Category:      t.Category,
		PaymentMethod: t.PaymentMethod,
		Amount:        t.Signed().String(),
		Notes:         t.Notes,
	}
}

type totals struct {
	Income, Expense, Balance core.Money
}

func totalsOf(txs []core.Transaction) totals {
	var t totals
	for _, tx := range txs {
		if tx.Type == core.Income {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}
