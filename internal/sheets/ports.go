// Package sheets defines the remote mirror that receives a flat copy of every
// user record, and the row layout for each record kind.
package sheets

import (
	"context"
	"strconv"
	"time"

	"pocket/internal/core"
)

// Record is one mirrored row. Values follow the column order of Headers for
// the entity, without the leading id column.
type Record struct {
	Entity string
	ID     string
	UserID string
	Values []string
}

// RecordMirror receives upserts and deletes from the sync processor. Both
// operations must be idempotent.
type RecordMirror interface {
	Upsert(ctx context.Context, r Record) error
	Delete(ctx context.Context, entity, id string) error
}

// Headers lists the column titles per entity, id first.
var Headers = map[string][]string{
	"transaction": {"ID", "User", "Date", "Title", "Type", "Category", "Payment Method", "Amount", "Notes", "Updated"},
	"task":        {"ID", "User", "Due Date", "Due Time", "Title", "Category", "Priority", "Completed", "Recurrence", "Subtasks", "Updated"},
	"payout":      {"ID", "User", "Person", "Type", "Status", "Amount", "Due Date", "Paid At", "Notes", "Updated"},
	"person":      {"ID", "User", "Name", "Email", "Created"},
}

const dateLayout = "2006-01-02"

func TransactionRecord(t core.Transaction) Record {
	return Record{
		Entity: "transaction",
		ID:     t.ID,
		UserID: t.UserID,
		Values: []string{
			t.UserID,
			t.Date.Format(dateLayout),
			t.Title,
			string(t.Type),
			t.Category,
			t.PaymentMethod,
			t.Signed().String(),
			t.Notes,
			t.UpdatedAt.Format(time.RFC3339),
		},
	}
}

func TaskRecord(t core.Task) Record {
	done := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return Record{
		Entity: "task",
		ID:     t.ID,
		UserID: t.UserID,
		Values: []string{
			t.UserID,
			t.DueDate.Format(dateLayout),
			t.DueTime,
			t.Title,
			t.Category,
			string(t.Priority),
			strconv.FormatBool(t.Completed),
			string(t.Recurrence),
			strconv.Itoa(done) + "/" + strconv.Itoa(len(t.Subtasks)),
			t.UpdatedAt.Format(time.RFC3339),
		},
	}
}

func PayoutRecord(p core.Payout) Record {
	paidAt := ""
	if p.PaidAt != nil {
		paidAt = p.PaidAt.Format(time.RFC3339)
	}
	return Record{
		Entity: "payout",
		ID:     p.ID,
		UserID: p.UserID,
		Values: []string{
			p.UserID,
			p.PersonName,
			string(p.Type),
			string(p.Status),
			p.Amount.String(),
			p.DueDate.Format(dateLayout),
			paidAt,
			p.Notes,
			p.UpdatedAt.Format(time.RFC3339),
		},
	}
}

func PersonRecord(p core.Person) Record {
	return Record{
		Entity: "person",
		ID:     p.ID,
		UserID: p.UserID,
		Values: []string{p.UserID, p.Name, p.Email, p.CreatedAt.Format(time.RFC3339)},
	}
}
