package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket/internal/amqp"
	"pocket/internal/core"
	"pocket/internal/notify"
	"pocket/internal/notify/memory"
	"pocket/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

type fakeTasks map[string]core.Task

func (f fakeTasks) GetTask(_ context.Context, userID, id string) (core.Task, error) {
	t, ok := f[id]
	if !ok || t.UserID != userID {
		return core.Task{}, storage.ErrNotFound
	}
	return t, nil
}

type brokenScheduler struct{ notify.Scheduler }

func (brokenScheduler) Cancel(context.Context, string) error { return errors.New("calendar down") }

func newWorker(tasks TaskReader, scheduler notify.Scheduler) *ReminderWorker {
	w := NewReminderWorker(tasks, scheduler, time.UTC, nil, nil)
	w.now = func() time.Time { return testNow }
	return w
}

func TestHandleTaskReminder(t *testing.T) {
	tasks := fakeTasks{
		"due-today": {ID: "due-today", UserID: "u1", Title: "Dentist", DueDate: testNow, DueTime: "17:30", Recurrence: core.RecurrenceNone},
		"done":      {ID: "done", UserID: "u1", Title: "Done", DueDate: testNow, Completed: true, Recurrence: core.RecurrenceNone},
	}

	tests := []struct {
		name       string
		msg        *amqp.TaskReminderMessage
		wantAlerts int
	}{
		{"reschedule pending task", amqp.NewTaskReminderMessage("due-today", "u1", amqp.ReminderReschedule), 2},
		{"completed task has no alerts", amqp.NewTaskReminderMessage("done", "u1", amqp.ReminderReschedule), 0},
		{"cancel", amqp.NewTaskReminderMessage("due-today", "u1", amqp.ReminderCancel), 0},
		{"task gone", amqp.NewTaskReminderMessage("missing", "u1", amqp.ReminderReschedule), 0},
		{"foreign task", amqp.NewTaskReminderMessage("due-today", "u2", amqp.ReminderReschedule), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := memory.New()
			// stale alerts from an earlier version of the task
			if err := scheduler.Schedule(context.Background(), core.Task{ID: tt.msg.TaskID}, []notify.Alert{{TaskID: tt.msg.TaskID, Kind: notify.AlertDue, At: testNow.Add(time.Hour)}}); err != nil {
				t.Fatalf("seed scheduler: %v", err)
			}

			if err := newWorker(tasks, scheduler).HandleTaskReminder(context.Background(), tt.msg); err != nil {
				t.Fatalf("HandleTaskReminder() error = %v", err)
			}

			got := scheduler.Scheduled(tt.msg.TaskID)
			if len(got) != tt.wantAlerts {
				t.Fatalf("scheduled %d alerts, want %d: %+v", len(got), tt.wantAlerts, got)
			}
			if tt.wantAlerts == 2 {
				if got[0].Kind != notify.AlertBeforeDue || got[1].Kind != notify.AlertDue {
					t.Errorf("alert kinds = %s, %s", got[0].Kind, got[1].Kind)
				}
				if want := time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC); !got[1].At.Equal(want) {
					t.Errorf("due alert at %v, want %v", got[1].At, want)
				}
			}
		})
	}
}

func TestHandleTaskReminder_SchedulerError(t *testing.T) {
	w := newWorker(fakeTasks{}, brokenScheduler{})
	err := w.HandleTaskReminder(context.Background(), amqp.NewTaskReminderMessage("t1", "u1", amqp.ReminderCancel))
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}
