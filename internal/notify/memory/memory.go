package memory

import (
	"context"
	"sync"

	"pocket/internal/core"
	"pocket/internal/notify"
)

// Scheduler records alerts in memory. It is used when no calendar is
// configured and in tests.
type Scheduler struct {
	mu     sync.Mutex
	alerts map[string][]notify.Alert
}

var _ notify.Scheduler = (*Scheduler)(nil)

func New() *Scheduler {
	return &Scheduler{alerts: make(map[string][]notify.Alert)}
}

func (s *Scheduler) Schedule(_ context.Context, task core.Task, alerts []notify.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[task.ID] = append(s.alerts[task.ID], alerts...)
	return nil
}

func (s *Scheduler) Cancel(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerts, taskID)
	return nil
}

// Scheduled returns a copy of the alerts pending for taskID.
func (s *Scheduler) Scheduled(taskID string) []notify.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Alert(nil), s.alerts[taskID]...)
}
