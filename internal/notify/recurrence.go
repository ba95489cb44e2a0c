package notify

import (
	"fmt"
	"time"

	"pocket/internal/core"
)

// maxOccurrences bounds how far a recurring task is rolled forward.
const maxOccurrences = 5000

// RecurrenceStrategy computes the occurrences of a recurring task.
type RecurrenceStrategy interface {
	// Occurrence returns the nth occurrence after start; n == 0 is start.
	Occurrence(start time.Time, n int) time.Time
}

// DailyStrategy repeats every calendar day at the same wall clock time.
type DailyStrategy struct{}

func (DailyStrategy) Occurrence(start time.Time, n int) time.Time {
	return start.AddDate(0, 0, n)
}

// WeeklyStrategy repeats on the same weekday.
type WeeklyStrategy struct{}

func (WeeklyStrategy) Occurrence(start time.Time, n int) time.Time {
	return start.AddDate(0, 0, 7*n)
}

// MonthlyStrategy repeats on the start's day of month, clamped to the last
// day of shorter months. A task due on Jan 31 recurs on Feb 29 in a leap
// year and returns to Mar 31.
type MonthlyStrategy struct{}

func (MonthlyStrategy) Occurrence(start time.Time, n int) time.Time {
	loc := start.Location()
	first := time.Date(start.Year(), start.Month()+time.Month(n), 1, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), loc)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, loc).Day()
	day := start.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

var recurrenceStrategies = map[core.Recurrence]RecurrenceStrategy{
	core.RecurrenceDaily:   DailyStrategy{},
	core.RecurrenceWeekly:  WeeklyStrategy{},
	core.RecurrenceMonthly: MonthlyStrategy{},
}

// GetRecurrenceStrategy returns the strategy for a repeating recurrence.
func GetRecurrenceStrategy(r core.Recurrence) (RecurrenceStrategy, error) {
	s, ok := recurrenceStrategies[r]
	if !ok {
		return nil, fmt.Errorf("no recurrence strategy for %q", r)
	}
	return s, nil
}

// NextOccurrence returns the first occurrence of start strictly after now.
// The boolean is false when none is found within maxOccurrences.
func NextOccurrence(s RecurrenceStrategy, start, now time.Time) (time.Time, bool) {
	for n := 0; n < maxOccurrences; n++ {
		if at := s.Occurrence(start, n); at.After(now) {
			return at, true
		}
	}
	return time.Time{}, false
}
