// Package stats aggregates transactions, tasks and payouts into dashboard
// figures and filtered views. Every function is pure: inputs are never
// modified and the reference time is always passed in.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"pocket/internal/core"
)

const day = 24 * time.Hour

// ErrInvalidFilter is wrapped by every filter validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// TransactionStats is the transaction dashboard rollup.
type TransactionStats struct {
	TotalBalance      core.Money `json:"totalBalance"`
	TotalIncome       core.Money `json:"totalIncome"`
	TotalExpense      core.Money `json:"totalExpense"`
	Last7DaysIncome   core.Money `json:"last7DaysIncome"`
	Last7DaysExpense  core.Money `json:"last7DaysExpense"`
	Last30DaysIncome  core.Money `json:"last30DaysIncome"`
	Last30DaysExpense core.Money `json:"last30DaysExpense"`
}

// EmptyTransactionStats is returned for an empty transaction list.
var EmptyTransactionStats = TransactionStats{}

// Timeline names a relative date range.
type Timeline string

const (
	TimelineAll    Timeline = ""
	TimelineToday  Timeline = "today"
	Timeline7Days  Timeline = "7days"
	Timeline30Days Timeline = "30days"
	TimelineMonth  Timeline = "month"
	TimelineYear   Timeline = "year"
	TimelineCustom Timeline = "custom"
)

func (t Timeline) IsValid() bool {
	switch t {
	case TimelineAll, TimelineToday, Timeline7Days, Timeline30Days, TimelineMonth, TimelineYear, TimelineCustom:
		return true
	}
	return false
}

// Since returns the inclusive lower bound of a relative timeline. The
// boolean is false when the timeline places no lower bound.
func (t Timeline) Since(now time.Time) (time.Time, bool) {
	loc := now.Location()
	switch t {
	case TimelineToday:
		return core.StartOfDay(now, loc), true
	case Timeline7Days:
		return now.Add(-7 * day), true
	case Timeline30Days:
		return now.Add(-30 * day), true
	case TimelineMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), true
	case TimelineYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// TypeFilter selects transactions by type; TypeAll keeps both.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeIncome  TypeFilter = TypeFilter(core.Income)
	TypeExpense TypeFilter = TypeFilter(core.Expense)
)

// TransactionFilter describes a filtered transaction view. StartDate and
// EndDate are only read for TimelineCustom; a zero bound is open.
type TransactionFilter struct {
	Type      TypeFilter
	Timeline  Timeline
	Category  string
	StartDate time.Time
	EndDate   time.Time
}

func (f TransactionFilter) Validate() error {
	switch f.Type {
	case "", TypeAll, TypeIncome, TypeExpense:
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidFilter, f.Type)
	}
	if !f.Timeline.IsValid() {
		return fmt.Errorf("%w: timeline %q", ErrInvalidFilter, f.Timeline)
	}
	if f.Timeline == TimelineCustom && !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidFilter, f.EndDate.Format(time.DateOnly), f.StartDate.Format(time.DateOnly))
	}
	return nil
}

// SummarizeTransactions rolls transactions up in a single pass. A record
// lands in the 7 and 30 day buckets when its date is at or after now minus
// that many days.
func SummarizeTransactions(txs []core.Transaction, now time.Time) TransactionStats {
	if len(txs) == 0 {
		return EmptyTransactionStats
	}

	weekAgo := now.Add(-7 * day)
	monthAgo := now.Add(-30 * day)

	var s TransactionStats
	for _, tx := range txs {
		inWeek := !tx.Date.Before(weekAgo)
		inMonth := !tx.Date.Before(monthAgo)
		switch tx.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			if inWeek {
				s.Last7DaysIncome = s.Last7DaysIncome.Add(tx.Amount)
			}
			if inMonth {
				s.Last30DaysIncome = s.Last30DaysIncome.Add(tx.Amount)
			}
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			if inWeek {
				s.Last7DaysExpense = s.Last7DaysExpense.Add(tx.Amount)
			}
			if inMonth {
				s.Last30DaysExpense = s.Last30DaysExpense.Add(tx.Amount)
			}
		}
	}
	s.TotalBalance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// FilterTransactions returns the subset matching f. The custom timeline
// keeps records inside [StartDate, EndDate] and ignores the type and
// category criteria. All bounds are inclusive.
func FilterTransactions(txs []core.Transaction, f TransactionFilter, now time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))

	if f.Timeline == TimelineCustom {
		for _, tx := range txs {
			if withinRange(tx.Date, f.StartDate, f.EndDate) {
				out = append(out, tx)
			}
		}
		return out
	}

	since, bounded := f.Timeline.Since(now)
	for _, tx := range txs {
		if f.Type != "" && f.Type != TypeAll && TypeFilter(tx.Type) != f.Type {
			continue
		}
		if bounded && tx.Date.Before(since) {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func withinRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

// SearchTransactions matches query case-insensitively against title,
// category, notes and payment method. A blank query matches nothing.
func SearchTransactions(txs []core.Transaction, query string) []core.Transaction {
	out := []core.Transaction{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, tx := range txs {
		if containsFold(q, tx.Title, tx.Category, tx.Notes, tx.PaymentMethod) {
			out = append(out, tx)
		}
	}
	return out
}

func containsFold(lowerQuery string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), lowerQuery) {
			return true
		}
	}
	return false
}

// CategoryTotal is one row of the expense breakdown.
type CategoryTotal struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Count    int        `json:"count"`
	Percent  float64    `json:"percent"`
}

// CategoryBreakdown totals expenses per category, largest first.
func CategoryBreakdown(txs []core.Transaction) []CategoryTotal {
	byCategory := map[string]*CategoryTotal{}
	var total int64
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		ct.Amount = ct.Amount.Add(tx.Amount)
		ct.Count++
		total += tx.Amount.Cents
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		if total > 0 {
			ct.Percent = math.Round(float64(ct.Amount.Cents)/float64(total)*10000) / 100
		}
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthTotal is the income and expense of one calendar month ("2006-01").
type MonthTotal struct {
	Month   string     `json:"month"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// MonthlyTotals groups transactions by the month of their date, oldest first.
func MonthlyTotals(txs []core.Transaction) []MonthTotal {
	byMonth := map[string]*MonthTotal{}
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		mt, ok := byMonth[key]
		if !ok {
			mt = &MonthTotal{Month: key}
			byMonth[key] = mt
		}
		if tx.Type == core.Income {
			mt.Income = mt.Income.Add(tx.Amount)
		} else {
			mt.Expense = mt.Expense.Add(tx.Amount)
		}
		mt.Net = mt.Income.Sub(mt.Expense)
	}

	out := make([]MonthTotal, 0, len(byMonth))
	for _, mt := range byMonth {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
