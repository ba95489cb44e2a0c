package stats

import (
	"testing"
	"time"

	"pocket/internal/core"
)

func payout(personID, name string, cents int64, typ core.PayoutType, status core.PayoutStatus, created time.Time) core.Payout {
	return core.Payout{
		ID:         name + created.Format("150405"),
		PersonID:   personID,
		PersonName: name,
		Amount:     core.Money{Cents: cents},
		Type:       typ,
		Status:     status,
		CreatedAt:  created,
	}
}

func TestSummarizePayouts(t *testing.T) {
	payouts := []core.Payout{
		payout("p1", "Ana", 500, core.PayTo, core.PayoutPending, now),
		payout("p1", "Ana", 200, core.PayTo, core.PayoutPaid, now),
		payout("p2", "Ben", 1200, core.ReceiveFrom, core.PayoutPending, now),
		payout("p2", "Ben", 300, core.ReceiveFrom, core.PayoutReceived, now),
		payout("p2", "Ben", 900, core.ReceiveFrom, core.PayoutCancelled, now),
	}

	s := SummarizePayouts(payouts)

	want := PayoutStats{
		TotalPayTo:       core.Money{Cents: 500},
		TotalReceiveFrom: core.Money{Cents: 1200},
		NetBalance:       core.Money{Cents: 700},
		PendingPayments:  1,
		PendingReceipts:  1,
		CompletedCount:   2,
	}
	if s != want {
		t.Fatalf("SummarizePayouts() = %+v, want %+v", s, want)
	}
	if s.NetBalance.Cents != s.TotalReceiveFrom.Cents-s.TotalPayTo.Cents {
		t.Fatal("net balance invariant violated")
	}
}

func TestSummarizePayouts_SinglePendingPayTo(t *testing.T) {
	s := SummarizePayouts([]core.Payout{payout("p", "P", 500, core.PayTo, core.PayoutPending, now)})
	if s.TotalPayTo.Cents != 500 || s.PendingPayments != 1 || s.NetBalance.Cents != -500 {
		t.Fatalf("got %+v", s)
	}

	people := SummarizePeople(nil, []core.Payout{payout("p", "P", 500, core.PayTo, core.PayoutPending, now)})
	if len(people) != 1 || people[0].PendingBalance.Cents != -500 {
		t.Fatalf("person summary = %+v", people)
	}
}

func TestSummarizePeople(t *testing.T) {
	people := []core.Person{
		{ID: "p1", Name: "Ana Lima", Email: "ana@example.com"},
		{ID: "p2", Name: "Ben"},
		{ID: "p3", Name: "Nobody"},
	}
	payouts := []core.Payout{
		payout("p1", "ana", 500, core.PayTo, core.PayoutPending, now.Add(-48*time.Hour)),
		payout("p1", "Ana Lima", 300, core.ReceiveFrom, core.PayoutPending, now.Add(-24*time.Hour)),
		payout("p1", "Ana Lima", 1000, core.PayTo, core.PayoutPaid, now.Add(-72*time.Hour)),
		payout("p2", "Ben", 700, core.ReceiveFrom, core.PayoutReceived, now),
		// Same name as p2 but a different person: must not merge.
		payout("p4", "Ben", 50, core.PayTo, core.PayoutPending, now.Add(-time.Hour)),
	}

	got := SummarizePeople(people, payouts)

	if len(got) != 3 {
		t.Fatalf("got %d summaries, want 3: %+v", len(got), got)
	}
	order := []string{got[0].PersonID, got[1].PersonID, got[2].PersonID}
	if order[0] != "p2" || order[1] != "p4" || order[2] != "p1" {
		t.Fatalf("order = %v, want [p2 p4 p1]", order)
	}

	ana := got[2]
	if ana.Name != "Ana Lima" || ana.Email != "ana@example.com" {
		t.Errorf("ana identity = %+v", ana)
	}
	if ana.PendingBalance.Cents != -200 || ana.TotalCount != 3 || ana.PendingCount != 2 {
		t.Errorf("ana figures = %+v", ana)
	}
	if !ana.LastTransactionDate.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("ana last = %v", ana.LastTransactionDate)
	}

	ben := got[0]
	if ben.PendingBalance.Cents != 0 || ben.PendingCount != 0 || ben.TotalCount != 1 {
		t.Errorf("ben figures = %+v", ben)
	}
}

func TestSummarizePeople_UnlinkedPayoutsGroupByName(t *testing.T) {
	payouts := []core.Payout{
		payout("", "Cara", 100, core.PayTo, core.PayoutPending, now),
		payout("", " cara ", 50, core.ReceiveFrom, core.PayoutPending, now.Add(-time.Hour)),
	}
	got := SummarizePeople(nil, payouts)
	if len(got) != 1 || got[0].TotalCount != 2 || got[0].PendingBalance.Cents != -50 {
		t.Fatalf("got %+v", got)
	}
}

func TestPersonBalance(t *testing.T) {
	person := core.Person{ID: "p1", Name: "Ana", TotalOwed: core.Money{Cents: 999999}, TransactionCount: 42}
	payouts := []core.Payout{
		payout("p1", "Ana", 500, core.PayTo, core.PayoutPending, now.Add(-time.Hour)),
		payout("p1", "Ana", 800, core.ReceiveFrom, core.PayoutReceived, now),
		payout("p1", "Ana", 300, core.ReceiveFrom, core.PayoutCancelled, now.Add(-2*time.Hour)),
		payout("p2", "Ben", 10000, core.ReceiveFrom, core.PayoutPending, now),
	}

	got := PersonBalance(person, payouts)

	if got.TotalOwed.Cents != 300 {
		t.Errorf("TotalOwed = %d, want 300", got.TotalOwed.Cents)
	}
	if got.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", got.TransactionCount)
	}
	if got.LastTransactionDate == nil || !got.LastTransactionDate.Equal(now) {
		t.Errorf("LastTransactionDate = %v", got.LastTransactionDate)
	}
	if person.TotalOwed.Cents != 999999 {
		t.Error("input person was mutated")
	}

	empty := PersonBalance(core.Person{ID: "p9"}, payouts)
	if empty.TransactionCount != 0 || !empty.TotalOwed.IsZero() || empty.LastTransactionDate != nil {
		t.Errorf("person without payouts = %+v", empty)
	}
}
