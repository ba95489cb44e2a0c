package analytics

import (
	"fmt"
	"time"

	"pocket/internal/core"
	"pocket/internal/stats"
)

// LocalReport derives the report from the local aggregators.
func LocalReport(txs []core.Transaction, now time.Time) Report {
	report := Report{
		Summary:    stats.SummarizeTransactions(txs, now),
		Categories: stats.CategoryBreakdown(txs),
		Monthly:    stats.MonthlyTotals(txs),
	}
	report.Insights = insights(report, now)
	return report
}

func insights(r Report, now time.Time) []string {
	var out []string
	if len(r.Categories) > 0 {
		top := r.Categories[0]
		out = append(out, fmt.Sprintf("Top spending category is %s at %s (%.1f%% of expenses).",
			top.Category, top.Amount, top.Percent))
	}

	current := now.Format("2006-01")
	previous := now.AddDate(0, -1, 0).Format("2006-01")
	var cur, prev *stats.MonthTotal
	for i := range r.Monthly {
		switch r.Monthly[i].Month {
		case current:
			cur = &r.Monthly[i]
		case previous:
			prev = &r.Monthly[i]
		}
	}
	if cur != nil && prev != nil && prev.Expense.Cents > 0 {
		change := float64(cur.Expense.Cents-prev.Expense.Cents) / float64(prev.Expense.Cents) * 100
		direction := "more"
		if change < 0 {
			direction, change = "less", -change
		}
		out = append(out, fmt.Sprintf("You spent %.0f%% %s this month than last month.", change, direction))
	}

	if r.Summary.TotalBalance.Cents < 0 {
		out = append(out, "Expenses exceed income overall.")
	}
	return out
}
