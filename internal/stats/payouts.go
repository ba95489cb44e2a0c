package stats

import (
	"sort"
	"time"

	"pocket/internal/core"
)

// PayoutStats is the payout dashboard rollup. Monetary totals and pending
// counters consider pending payouts only.
type PayoutStats struct {
	TotalPayTo       core.Money `json:"totalPayTo"`
	TotalReceiveFrom core.Money `json:"totalReceiveFrom"`
	NetBalance       core.Money `json:"netBalance"`
	PendingPayments  int        `json:"pendingPayments"`
	PendingReceipts  int        `json:"pendingReceipts"`
	CompletedCount   int        `json:"completedCount"`
}

func SummarizePayouts(payouts []core.Payout) PayoutStats {
	var s PayoutStats
	for _, p := range payouts {
		switch {
		case p.Status == core.PayoutPending && p.Type == core.PayTo:
			s.TotalPayTo = s.TotalPayTo.Add(p.Amount)
			s.PendingPayments++
		case p.Status == core.PayoutPending && p.Type == core.ReceiveFrom:
			s.TotalReceiveFrom = s.TotalReceiveFrom.Add(p.Amount)
			s.PendingReceipts++
		case p.IsResolved():
			s.CompletedCount++
		}
	}
	s.NetBalance = s.TotalReceiveFrom.Sub(s.TotalPayTo)
	return s
}

// PersonSummary aggregates one counterparty's payouts.
type PersonSummary struct {
	PersonID            string     `json:"personId"`
	Name                string     `json:"name"`
	Email               string     `json:"email,omitempty"`
	PendingBalance      core.Money `json:"pendingBalance"`
	TotalCount          int        `json:"totalCount"`
	PendingCount        int        `json:"pendingCount"`
	LastTransactionDate time.Time  `json:"lastTransactionDate"`
}

// SummarizePeople groups payouts by PersonID. The balance only counts
// pending payouts (receive_from adds, pay_to subtracts). People without
// payouts are left out, and payouts whose person is unknown still form a
// group named after the payout. Results are newest activity first.
func SummarizePeople(people []core.Person, payouts []core.Payout) []PersonSummary {
	groups := map[string]*PersonSummary{}
	for _, p := range payouts {
		key := groupKey(p)
		g, ok := groups[key]
		if !ok {
			g = &PersonSummary{PersonID: p.PersonID, Name: p.PersonName, Email: p.PersonEmail}
			groups[key] = g
		}
		g.TotalCount++
		if p.Status == core.PayoutPending {
			g.PendingCount++
			g.PendingBalance = g.PendingBalance.Add(p.Signed())
		}
		if p.CreatedAt.After(g.LastTransactionDate) {
			g.LastTransactionDate = p.CreatedAt
		}
	}

	for _, person := range people {
		if g, ok := groups[person.ID]; ok {
			g.Name = person.Name
			if person.Email != "" {
				g.Email = person.Email
			}
		}
	}

	out := make([]PersonSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastTransactionDate.Equal(out[j].LastTransactionDate) {
			return out[i].LastTransactionDate.After(out[j].LastTransactionDate)
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out
}

// groupKey falls back to the normalized name for payouts recorded before
// they were linked to a person.
func groupKey(p core.Payout) string {
	if p.PersonID != "" {
		return p.PersonID
	}
	return "name:" + core.NormalizeName(p.PersonName)
}

// PersonBalance recomputes a person's derived fields from the full set of
// payouts. Cancelled payouts count toward TransactionCount but not TotalOwed.
func PersonBalance(person core.Person, payouts []core.Payout) core.Person {
	person.TotalOwed = core.Money{}
	person.TransactionCount = 0
	person.LastTransactionDate = nil

	for _, p := range payouts {
		if p.PersonID != person.ID {
			continue
		}
		person.TransactionCount++
		if p.Status != core.PayoutCancelled {
			person.TotalOwed = person.TotalOwed.Add(p.Signed())
		}
		if person.LastTransactionDate == nil || p.CreatedAt.After(*person.LastTransactionDate) {
			created := p.CreatedAt
			person.LastTransactionDate = &created
		}
	}
	return person
}

// PeopleWithBalances applies PersonBalance to every person.
func PeopleWithBalances(people []core.Person, payouts []core.Payout) []core.Person {
	out := make([]core.Person, 0, len(people))
	for _, person := range people {
		out = append(out, PersonBalance(person, payouts))
	}
	return out
}
