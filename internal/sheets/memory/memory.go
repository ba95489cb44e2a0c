package memory

import (
	"context"
	"sync"

	ports "pocket/internal/sheets"
)

// Mirror keeps mirrored records in memory. It backs local development and
// tests when no spreadsheet is configured.
type Mirror struct {
	mu      sync.Mutex
	records map[string]map[string]ports.Record
	upserts int
	deletes int
}

var _ ports.RecordMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{records: make(map[string]map[string]ports.Record)}
}

func (m *Mirror) Upsert(_ context.Context, r ports.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.records[r.Entity]
	if !ok {
		byID = make(map[string]ports.Record)
		m.records[r.Entity] = byID
	}
	r.Values = append([]string(nil), r.Values...)
	byID[r.ID] = r
	m.upserts++
	return nil
}

func (m *Mirror) Delete(_ context.Context, entity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[entity], id)
	m.deletes++
	return nil
}

// Get returns the mirrored record, if any.
func (m *Mirror) Get(entity, id string) (ports.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[entity][id]
	return r, ok
}

// Len counts mirrored records of one entity.
func (m *Mirror) Len(entity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[entity])
}

// Calls reports how many upserts and deletes were received.
func (m *Mirror) Calls() (upserts, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts, m.deletes
}
