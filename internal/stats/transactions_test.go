package stats

import (
	"testing"
	"time"

	"pocket/internal/core"
)

var now = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func tx(id string, cents int64, typ core.TransactionType, date time.Time) core.Transaction {
	return core.Transaction{ID: id, Title: id, Amount: core.Money{Cents: cents}, Type: typ, Category: "misc", Date: date}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func sameIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got ids %v, want %v", got, want)
		}
	}
}

func TestSummarizeTransactions_Example(t *testing.T) {
	txs := []core.Transaction{
		tx("salary", 10000, core.Income, now),
		tx("dinner", 4000, core.Expense, now.AddDate(0, 0, -8)),
	}

	s := SummarizeTransactions(txs, now)

	if s.TotalIncome.Cents != 10000 || s.TotalExpense.Cents != 4000 || s.TotalBalance.Cents != 6000 {
		t.Fatalf("totals = %+v", s)
	}
	if s.Last7DaysExpense.Cents != 0 {
		t.Errorf("Last7DaysExpense = %d, want 0", s.Last7DaysExpense.Cents)
	}
	if s.Last30DaysExpense.Cents != 4000 {
		t.Errorf("Last30DaysExpense = %d, want 4000", s.Last30DaysExpense.Cents)
	}
	if s.Last7DaysIncome.Cents != 10000 || s.Last30DaysIncome.Cents != 10000 {
		t.Errorf("income buckets = %d/%d", s.Last7DaysIncome.Cents, s.Last30DaysIncome.Cents)
	}
}

func TestSummarizeTransactions_Empty(t *testing.T) {
	if got := SummarizeTransactions(nil, now); got != EmptyTransactionStats {
		t.Fatalf("empty input = %+v", got)
	}
}

func TestSummarizeTransactions_Invariants(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 60; i++ {
		typ := core.Expense
		if i%3 == 0 {
			typ = core.Income
		}
		txs = append(txs, tx("t", int64(100+i*37), typ, now.AddDate(0, 0, -i)))
	}

	s := SummarizeTransactions(txs, now)

	if s.TotalBalance.Cents != s.TotalIncome.Cents-s.TotalExpense.Cents {
		t.Errorf("balance %d != income %d - expense %d", s.TotalBalance.Cents, s.TotalIncome.Cents, s.TotalExpense.Cents)
	}
	if s.Last7DaysExpense.Cents > s.Last30DaysExpense.Cents || s.Last30DaysExpense.Cents > s.TotalExpense.Cents {
		t.Errorf("expense windows not nested: %d %d %d", s.Last7DaysExpense.Cents, s.Last30DaysExpense.Cents, s.TotalExpense.Cents)
	}
}

func TestSummarizeTransactions_BoundaryIncluded(t *testing.T) {
	txs := []core.Transaction{tx("edge", 500, core.Expense, now.Add(-7*day))}
	s := SummarizeTransactions(txs, now)
	if s.Last7DaysExpense.Cents != 500 {
		t.Fatalf("record exactly 7 days old should be included, got %d", s.Last7DaysExpense.Cents)
	}
}

func TestFilterTransactions(t *testing.T) {
	monthStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx("inc-today", 100, core.Income, now),
		tx("exp-today", 200, core.Expense, core.StartOfDay(now, time.UTC)),
		tx("exp-month-start", 300, core.Expense, monthStart),
		tx("exp-last-month", 400, core.Expense, monthStart.Add(-time.Second)),
		tx("inc-jan", 500, core.Income, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		tx("exp-last-year", 600, core.Expense, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
	}
	food := tx("exp-food", 700, core.Expense, now.Add(-time.Hour))
	food.Category = "food"
	txs = append(txs, food)

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"no filter", TransactionFilter{}, ids(txs)},
		{"expense this month", TransactionFilter{Type: TypeExpense, Timeline: TimelineMonth}, []string{"exp-today", "exp-month-start", "exp-food"}},
		{"today", TransactionFilter{Type: TypeAll, Timeline: TimelineToday}, []string{"inc-today", "exp-today", "exp-food"}},
		{"year income", TransactionFilter{Type: TypeIncome, Timeline: TimelineYear}, []string{"inc-today", "inc-jan"}},
		{"30 days", TransactionFilter{Timeline: Timeline30Days}, []string{"inc-today", "exp-today", "exp-month-start", "exp-last-month", "exp-food"}},
		{"category after timeline", TransactionFilter{Timeline: Timeline7Days, Category: "food"}, []string{"exp-food"}},
		{
			name: "custom ignores type and category",
			filter: TransactionFilter{
				Type:      TypeIncome,
				Category:  "food",
				Timeline:  TimelineCustom,
				StartDate: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
				EndDate:   monthStart,
			},
			want: []string{"exp-month-start", "exp-last-month", "inc-jan", "exp-last-year"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sameIDs(t, ids(FilterTransactions(txs, tt.filter, now)), tt.want...)
		})
	}
}

func TestFilterTransactions_DoesNotMutate(t *testing.T) {
	txs := []core.Transaction{tx("a", 1, core.Income, now), tx("b", 2, core.Expense, now)}
	_ = FilterTransactions(txs, TransactionFilter{Type: TypeExpense}, now)
	if txs[0].ID != "a" || txs[1].ID != "b" || len(txs) != 2 {
		t.Fatalf("input changed: %v", ids(txs))
	}
}

func TestTransactionFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  TransactionFilter
		wantErr bool
	}{
		{"empty", TransactionFilter{}, false},
		{"all month", TransactionFilter{Type: TypeAll, Timeline: TimelineMonth}, false},
		{"bad type", TransactionFilter{Type: "transfer"}, true},
		{"bad timeline", TransactionFilter{Timeline: "decade"}, true},
		{"inverted custom range", TransactionFilter{Timeline: TimelineCustom, StartDate: now, EndDate: now.Add(-day)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.filter.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchTransactions(t *testing.T) {
	a := tx("a", 100, core.Expense, now)
	a.Title = "Groceries at Market"
	b := tx("b", 100, core.Expense, now)
	b.Notes = "split with SAM"
	c := tx("c", 100, core.Income, now)
	c.PaymentMethod = "Bank Transfer"
	d := tx("d", 100, core.Expense, now)
	d.Category = "Transport"
	txs := []core.Transaction{a, b, c, d}

	tests := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"   ", nil},
		{"market", []string{"a"}},
		{"sam", []string{"b"}},
		{"TRANSFER", []string{"c"}},
		{"trans", []string{"c", "d"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := SearchTransactions(txs, tt.query)
			if got == nil {
				t.Fatal("search should return an empty slice, not nil")
			}
			sameIDs(t, ids(got), tt.want...)
		})
	}
}

func TestCategoryBreakdown(t *testing.T) {
	rent := tx("rent", 7500, core.Expense, now)
	rent.Category = "home"
	food1 := tx("f1", 1500, core.Expense, now)
	food1.Category = "food"
	food2 := tx("f2", 1000, core.Expense, now)
	food2.Category = "food"
	pay := tx("pay", 99999, core.Income, now)

	got := CategoryBreakdown([]core.Transaction{food1, rent, pay, food2})
	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2", len(got))
	}
	if got[0].Category != "home" || got[0].Amount.Cents != 7500 || got[0].Percent != 75 {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1].Category != "food" || got[1].Count != 2 || got[1].Percent != 25 {
		t.Errorf("second row = %+v", got[1])
	}
}

func TestMonthlyTotals(t *testing.T) {
	txs := []core.Transaction{
		tx("a", 1000, core.Income, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
		tx("b", 300, core.Expense, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)),
		tx("c", 200, core.Expense, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)),
	}
	got := MonthlyTotals(txs)
	if len(got) != 2 || got[0].Month != "2024-02" || got[1].Month != "2024-03" {
		t.Fatalf("months = %+v", got)
	}
	if got[1].Net.Cents != 800 || got[0].Net.Cents != -300 {
		t.Errorf("net = %d, %d", got[0].Net.Cents, got[1].Net.Cents)
	}
}
