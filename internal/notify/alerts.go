// Package notify decides when a task should alert its owner and hands the
// alerts to a Scheduler.
package notify

import (
	"context"
	"sort"
	"time"

	"pocket/internal/core"
)

// AlertKind tells the three alert moments of a task apart.
type AlertKind string

const (
	AlertReminder  AlertKind = "reminder"
	AlertBeforeDue AlertKind = "before_due"
	AlertDue       AlertKind = "due"
)

// BeforeDueLead is how long before the due moment the early alert fires.
const BeforeDueLead = time.Hour

type Alert struct {
	TaskID string    `json:"taskId"`
	Kind   AlertKind `json:"kind"`
	At     time.Time `json:"at"`
}

// Scheduler delivers alerts. Schedule adds alerts for a task; Cancel removes
// every alert previously scheduled for it.
type Scheduler interface {
	Schedule(ctx context.Context, task core.Task, alerts []Alert) error
	Cancel(ctx context.Context, taskID string) error
}

// Alerts returns the future alerts of task, ordered by time. Completed tasks
// have none. A recurring task whose due moment has passed is rolled forward
// to its next occurrence, and its reminder moves with it.
func Alerts(task core.Task, now time.Time, loc *time.Location) []Alert {
	if task.Completed {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	due := task.DueAt(loc)
	reminder := task.Reminder
	if !due.After(now) && task.Recurrence != core.RecurrenceNone {
		if s, err := GetRecurrenceStrategy(task.Recurrence); err == nil {
			if next, ok := NextOccurrence(s, due, now); ok {
				if reminder != nil {
					moved := next.Add(reminder.Sub(due))
					reminder = &moved
				}
				due = next
			}
		}
	}

	candidates := []Alert{
		{TaskID: task.ID, Kind: AlertBeforeDue, At: due.Add(-BeforeDueLead)},
		{TaskID: task.ID, Kind: AlertDue, At: due},
	}
	if reminder != nil {
		candidates = append(candidates, Alert{TaskID: task.ID, Kind: AlertReminder, At: *reminder})
	}

	seen := make(map[int64]bool, len(candidates))
	alerts := make([]Alert, 0, len(candidates))
	for _, a := range candidates {
		key := a.At.UnixNano()
		if !a.At.After(now) || seen[key] {
			continue
		}
		seen[key] = true
		alerts = append(alerts, a)
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].At.Before(alerts[j].At) })
	return alerts
}
