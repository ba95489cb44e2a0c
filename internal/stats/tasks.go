package stats

import (
	"fmt"
	"strings"
	"time"

	"pocket/internal/core"
)

// MaxStreakDays caps the week streak.
const MaxStreakDays = 7

// TaskStats is the task dashboard rollup.
type TaskStats struct {
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
	PendingTasks   int     `json:"pendingTasks"`
	OverdueTasks   int     `json:"overdueTasks"`
	CompletionRate float64 `json:"completionRate"`
	TodayTasks     int     `json:"todayTasks"`
	TodayCompleted int     `json:"todayCompleted"`
	WeekStreak     int     `json:"weekStreak"`
}

// StreakPolicy decides how a day without completions so far is treated
// when it is today.
type StreakPolicy string

const (
	// StreakStrict starts the walk at today, so an empty today yields 0.
	StreakStrict StreakPolicy = "strict"
	// StreakGrace skips an empty today and starts the walk at yesterday.
	StreakGrace StreakPolicy = "grace"
)

// ParseStreakPolicy maps a configuration value to a policy. Empty means strict.
func ParseStreakPolicy(s string) (StreakPolicy, error) {
	switch StreakPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StreakStrict:
		return StreakStrict, nil
	case StreakGrace:
		return StreakGrace, nil
	}
	return "", fmt.Errorf("unknown streak policy %q", s)
}

// SummarizeTasks computes completion figures using statuses derived at now.
func SummarizeTasks(tasks []core.Task, now time.Time, policy StreakPolicy) TaskStats {
	var s TaskStats
	todayStart := core.StartOfDay(now, now.Location())
	tomorrow := todayStart.AddDate(0, 0, 1)

	for _, t := range tasks {
		s.TotalTasks++
		switch core.DeriveStatus(t, now) {
		case core.StatusCompleted:
			s.CompletedTasks++
		case core.StatusOverdue:
			s.OverdueTasks++
		default:
			s.PendingTasks++
		}
		if !t.DueDate.Before(todayStart) && t.DueDate.Before(tomorrow) {
			s.TodayTasks++
			if t.Completed {
				s.TodayCompleted++
			}
		}
	}

	if s.TotalTasks > 0 {
		s.CompletionRate = float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
	}
	s.WeekStreak = WeekStreak(tasks, now, policy)
	return s
}

// WeekStreak counts consecutive days, walking back from today, on which at
// least one task was completed. At most MaxStreakDays days are counted.
func WeekStreak(tasks []core.Task, now time.Time, policy StreakPolicy) int {
	var completions []time.Time
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil {
			completions = append(completions, *t.CompletedAt)
		}
	}
	if len(completions) == 0 {
		return 0
	}

	completedOn := func(dayStart time.Time) bool {
		dayEnd := dayStart.AddDate(0, 0, 1)
		for _, c := range completions {
			if !c.Before(dayStart) && c.Before(dayEnd) {
				return true
			}
		}
		return false
	}

	cursor := core.StartOfDay(now, now.Location())
	if policy == StreakGrace && !completedOn(cursor) {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for i := 0; i < MaxStreakDays; i++ {
		if !completedOn(cursor) {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// TaskFilter describes a filtered task view. Empty fields do not filter.
type TaskFilter struct {
	Category string
	Priority core.Priority
	Status   core.TaskStatus
	Date     *time.Time
}

func (f TaskFilter) Validate() error {
	if f.Priority != "" && !f.Priority.IsValid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidFilter, f.Priority)
	}
	if f.Status != "" && !f.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalidFilter, f.Status)
	}
	return nil
}

// FilterTasks returns the subset matching f. Status criteria compare
// against the status derived at now; the date criterion keeps tasks due
// on that calendar day.
func FilterTasks(tasks []core.Task, f TaskFilter, now time.Time) []core.Task {
	var dayStart, dayEnd time.Time
	if f.Date != nil {
		dayStart = core.StartOfDay(*f.Date, now.Location())
		dayEnd = dayStart.AddDate(0, 0, 1)
	}

	out := make([]core.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Status != "" && !matchesStatus(t, f.Status, now) {
			continue
		}
		if f.Date != nil && (t.DueDate.Before(dayStart) || !t.DueDate.Before(dayEnd)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesStatus(t core.Task, want core.TaskStatus, now time.Time) bool {
	switch want {
	case core.StatusCompleted:
		return t.Completed
	case core.StatusPending:
		return !t.Completed && core.DeriveStatus(t, now) == core.StatusPending
	case core.StatusOverdue:
		return core.DeriveStatus(t, now) == core.StatusOverdue
	}
	return false
}

// SearchTasks matches query case-insensitively against title, description,
// category and subtask titles. A blank query matches nothing.
func SearchTasks(tasks []core.Task, query string) []core.Task {
	out := []core.Task{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, t := range tasks {
		if containsFold(q, t.Title, t.Description, t.Category) || subtaskMatches(q, t.Subtasks) {
			out = append(out, t)
		}
	}
	return out
}

func subtaskMatches(q string, subtasks []core.Subtask) bool {
	for _, st := range subtasks {
		if strings.Contains(strings.ToLower(st.Title), q) {
			return true
		}
	}
	return false
}
