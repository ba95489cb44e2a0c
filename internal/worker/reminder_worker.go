// Package worker holds the AMQP message handlers run by pocket-worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pocket/internal/amqp"
	"pocket/internal/core"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/notify"
	"pocket/internal/storage"
)

// TaskReader loads a task scoped to its owner.
type TaskReader interface {
	GetTask(ctx context.Context, userID, id string) (core.Task, error)
}

// ReminderWorker keeps the alerts of the notification scheduler in step with
// task changes.
type ReminderWorker struct {
	tasks     TaskReader
	scheduler notify.Scheduler
	loc       *time.Location
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time
}

func NewReminderWorker(tasks TaskReader, scheduler notify.Scheduler, loc *time.Location, m *metrics.Metrics, logger *log.Logger) *ReminderWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderWorker{
		tasks:     tasks,
		scheduler: scheduler,
		loc:       loc,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleTaskReminder drops the task's existing alerts and, unless the task
// was deleted, schedules the alerts it has now. Redelivered messages are
// harmless because the task is always reloaded.
func (w *ReminderWorker) HandleTaskReminder(ctx context.Context, msg *amqp.TaskReminderMessage) error {
	w.logger.InfoContext(ctx, "Processing task reminder",
		log.FieldRecordID, msg.TaskID,
		log.FieldOperation, string(msg.Op),
		"timestamp", msg.Timestamp)

	if err := w.scheduler.Cancel(ctx, msg.TaskID); err != nil {
		w.metrics.Reminder(string(msg.Op), "error")
		return fmt.Errorf("cancel alerts for task %s: %w", msg.TaskID, err)
	}
	if msg.Op == amqp.ReminderCancel {
		w.metrics.Reminder(string(msg.Op), "cancelled")
		return nil
	}

	task, err := w.tasks.GetTask(ctx, msg.UserID, msg.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		// deleted before the message was handled
		w.metrics.Reminder(string(msg.Op), "cancelled")
		return nil
	}
	if err != nil {
		w.metrics.Reminder(string(msg.Op), "error")
		return fmt.Errorf("get task %s: %w", msg.TaskID, err)
	}

	alerts := notify.Alerts(task, w.now(), w.loc)
	if len(alerts) == 0 {
		w.metrics.Reminder(string(msg.Op), "cancelled")
		w.logger.DebugContext(ctx, "Task has no future alerts", log.FieldRecordID, task.ID)
		return nil
	}

	if err := w.scheduler.Schedule(ctx, task, alerts); err != nil {
		w.metrics.Reminder(string(msg.Op), "error")
		return fmt.Errorf("schedule alerts for task %s: %w", task.ID, err)
	}
	w.metrics.Reminder(string(msg.Op), "scheduled")
	w.logger.InfoContext(ctx, "Scheduled task alerts",
		log.FieldRecordID, task.ID,
		"count", len(alerts),
		"first", alerts[0].At)
	return nil
}
