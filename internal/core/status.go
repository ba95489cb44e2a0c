package core

import (
	"strings"
	"time"
)

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DeriveStatus computes a task's status at now. Completed tasks are always
// completed; otherwise a task is overdue once its due day has ended in
// now's location. The stored status is never consulted.
func DeriveStatus(t Task, now time.Time) TaskStatus {
	if t.Completed {
		return StatusCompleted
	}
	dayEnd := StartOfDay(t.DueDate, now.Location()).AddDate(0, 0, 1)
	if !now.Before(dayEnd) {
		return StatusOverdue
	}
	return StatusPending
}

// WithDerivedStatus returns a copy of t whose Status reflects DeriveStatus.
func (t Task) WithDerivedStatus(now time.Time) Task {
	t.Status = DeriveStatus(t, now)
	return t
}

// DueAt is the moment a task is due: its due date at DueTime when set,
// otherwise 09:00 on the due day.
func (t Task) DueAt(loc *time.Location) time.Time {
	day := StartOfDay(t.DueDate, loc)
	hour, minute := 9, 0
	if t.DueTime != "" {
		if h, m, err := ParseClock(t.DueTime); err == nil {
			hour, minute = h, m
		}
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ToggleCompleted flips completion and keeps Status and CompletedAt in step.
func (t Task) ToggleCompleted(now time.Time) Task {
	t.Completed = !t.Completed
	if t.Completed {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return t.WithDerivedStatus(now)
}

// StampCompletion keeps CompletedAt in step with Completed. A completion
// already recorded on prev keeps its moment; a new one is stamped at now.
func (t Task) StampCompletion(prev Task, now time.Time) Task {
	switch {
	case !t.Completed:
		t.CompletedAt = nil
	case prev.Completed && prev.CompletedAt != nil:
		at := *prev.CompletedAt
		t.CompletedAt = &at
	case t.CompletedAt == nil:
		at := now
		t.CompletedAt = &at
	}
	return t
}

// ToggleSubtask flips the subtask with the given id. The boolean is false
// when no such subtask exists.
func (t Task) ToggleSubtask(id string, now time.Time) (Task, bool) {
	subtasks := make([]Subtask, len(t.Subtasks))
	copy(subtasks, t.Subtasks)
	found := false
	for i := range subtasks {
		if subtasks[i].ID == id {
			subtasks[i].Completed = !subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return t, false
	}
	t.Subtasks = subtasks
	t.UpdatedAt = now
	return t, true
}

// NormalizeName is the case-insensitive key used to match person names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
