package notify

import (
	"testing"
	"time"

	"pocket/internal/core"
)

func TestAlerts(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	at := func(day, hour, min int) time.Time { return time.Date(2024, 3, day, hour, min, 0, 0, time.UTC) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name string
		task core.Task
		want []Alert
	}{
		{
			name: "completed task has no alerts",
			task: core.Task{ID: "k", DueDate: at(16, 0, 0), Completed: true},
			want: nil,
		},
		{
			name: "default due time is nine",
			task: core.Task{ID: "k", DueDate: at(16, 0, 0), Recurrence: core.RecurrenceNone},
			want: []Alert{
				{TaskID: "k", Kind: AlertBeforeDue, At: at(16, 8, 0)},
				{TaskID: "k", Kind: AlertDue, At: at(16, 9, 0)},
			},
		},
		{
			name: "reminder sorted first and past alerts dropped",
			task: core.Task{ID: "k", DueDate: at(15, 0, 0), DueTime: "08:30", Reminder: ptr(at(15, 8, 10)), Recurrence: core.RecurrenceNone},
			want: []Alert{
				{TaskID: "k", Kind: AlertReminder, At: at(15, 8, 10)},
				{TaskID: "k", Kind: AlertDue, At: at(15, 8, 30)},
			},
		},
		{
			name: "reminder equal to due is deduplicated",
			task: core.Task{ID: "k", DueDate: at(16, 0, 0), DueTime: "10:00", Reminder: ptr(at(16, 10, 0)), Recurrence: core.RecurrenceNone},
			want: []Alert{
				{TaskID: "k", Kind: AlertBeforeDue, At: at(16, 9, 0)},
				{TaskID: "k", Kind: AlertDue, At: at(16, 10, 0)},
			},
		},
		{
			name: "past one-off task has nothing left",
			task: core.Task{ID: "k", DueDate: at(14, 0, 0), Recurrence: core.RecurrenceNone},
			want: []Alert{},
		},
		{
			name: "past daily task rolls forward with its reminder",
			task: core.Task{ID: "k", DueDate: at(13, 0, 0), DueTime: "07:00", Reminder: ptr(at(13, 6, 30)), Recurrence: core.RecurrenceDaily},
			want: []Alert{
				{TaskID: "k", Kind: AlertBeforeDue, At: at(16, 6, 0)},
				{TaskID: "k", Kind: AlertReminder, At: at(16, 6, 30)},
				{TaskID: "k", Kind: AlertDue, At: at(16, 7, 0)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Alerts(tt.task, now, time.UTC)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Alerts() = %v, want nil", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Alerts() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Kind != tt.want[i].Kind || !got[i].At.Equal(tt.want[i].At) {
					t.Errorf("alert %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAlerts_Ordered(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	reminder := time.Date(2024, 3, 17, 20, 0, 0, 0, time.UTC)
	task := core.Task{ID: "k", DueDate: now.AddDate(0, 0, 2), Reminder: &reminder, Recurrence: core.RecurrenceNone}

	got := Alerts(task, now, nil)
	for i := 1; i < len(got); i++ {
		if got[i].At.Before(got[i-1].At) {
			t.Fatalf("alerts out of order: %v", got)
		}
	}
	if got[len(got)-1].Kind != AlertReminder {
		t.Errorf("late reminder should sort last, got %v", got)
	}
}
