package services

import (
	"context"
	"fmt"

	"pocket/internal/amqp"
	"pocket/internal/core"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/stats"
	"pocket/internal/storage"
)

// ReminderPublisher hands task changes to the reminder worker.
type ReminderPublisher interface {
	PublishTaskReminder(ctx context.Context, msg *amqp.TaskReminderMessage) error
}

// TaskService manages to-do items. Reads always carry the status derived at
// the service clock.
type TaskService struct {
	storage   *storage.SQLiteRepository
	publisher ReminderPublisher
	metrics   *metrics.Metrics
	policy    stats.StreakPolicy
	now       Clock
}

func NewTaskService(storage *storage.SQLiteRepository, publisher ReminderPublisher, m *metrics.Metrics, policy stats.StreakPolicy, now Clock) *TaskService {
	if now == nil {
		now = LocalClock(nil)
	}
	if policy == "" {
		policy = stats.StreakStrict
	}
	return &TaskService{storage: storage, publisher: publisher, metrics: m, policy: policy, now: now}
}

func (s *TaskService) Create(ctx context.Context, t core.Task) (core.Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Task{}, err
	}
	if t.Recurrence == "" {
		t.Recurrence = core.RecurrenceNone
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	t.UserID = userID
	t = t.StampCompletion(core.Task{}, s.now())

	created, err := s.storage.CreateTask(ctx, t)
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.changed(ctx, log.OpCreate, created.ID, userID, amqp.ReminderReschedule)
	return created.WithDerivedStatus(s.now()), nil
}

func (s *TaskService) Update(ctx context.Context, t core.Task) (core.Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Task{}, err
	}
	if t.Recurrence == "" {
		t.Recurrence = core.RecurrenceNone
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	t.UserID = userID

	prev, err := s.storage.GetTask(ctx, userID, t.ID)
	if err != nil {
		return core.Task{}, fmt.Errorf("update task: %w", translate(err))
	}
	return s.save(ctx, t.StampCompletion(prev, s.now()), log.OpUpdate)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteTask(ctx, userID, id); err != nil {
		return fmt.Errorf("delete task: %w", translate(err))
	}
	s.changed(ctx, log.OpDelete, id, userID, amqp.ReminderCancel)
	return nil
}

func (s *TaskService) Get(ctx context.Context, id string) (core.Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Task{}, err
	}
	t, err := s.storage.GetTask(ctx, userID, id)
	if err != nil {
		return core.Task{}, translate(err)
	}
	return t.WithDerivedStatus(s.now()), nil
}

// List returns the caller's tasks by due date with derived statuses.
func (s *TaskService) List(ctx context.Context) ([]core.Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.storage.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	now := s.now()
	for i := range tasks {
		tasks[i] = tasks[i].WithDerivedStatus(now)
	}
	return tasks, nil
}

// Toggle flips the completion of a task.
func (s *TaskService) Toggle(ctx context.Context, id string) (core.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return core.Task{}, err
	}
	return s.save(ctx, t.ToggleCompleted(s.now()), log.OpToggle)
}

// ToggleSubtask flips one subtask. An unknown subtask id is ErrNotFound.
func (s *TaskService) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (core.Task, error) {
	t, err := s.Get(ctx, taskID)
	if err != nil {
		return core.Task{}, err
	}
	toggled, ok := t.ToggleSubtask(subtaskID, s.now())
	if !ok {
		return core.Task{}, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	return s.save(ctx, toggled, log.OpToggle)
}

func (s *TaskService) Filter(ctx context.Context, f stats.TaskFilter) ([]core.Task, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return stats.FilterTasks(tasks, f, s.now()), nil
}

func (s *TaskService) Search(ctx context.Context, query string) ([]core.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return stats.SearchTasks(tasks, query), nil
}

func (s *TaskService) Stats(ctx context.Context) (stats.TaskStats, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return stats.TaskStats{}, err
	}
	return stats.SummarizeTasks(tasks, s.now(), s.policy), nil
}

func (s *TaskService) save(ctx context.Context, t core.Task, op string) (core.Task, error) {
	updated, err := s.storage.UpdateTask(ctx, t)
	if err != nil {
		return core.Task{}, fmt.Errorf("update task: %w", translate(err))
	}
	s.changed(ctx, op, updated.ID, updated.UserID, amqp.ReminderReschedule)
	return updated.WithDerivedStatus(s.now()), nil
}

// changed records the mutation and asks the worker to rebuild the alerts.
// Publication is best effort: the record is already stored.
func (s *TaskService) changed(ctx context.Context, op, taskID, userID string, reminder amqp.ReminderOp) {
	s.metrics.RecordChange(storage.EntityTask, op)
	log.LogRecordChange(ctx, op, storage.EntityTask, taskID, userID)

	if s.publisher == nil {
		log.FromContext(ctx).DebugContext(ctx, "No reminder publisher, skipping", log.FieldRecordID, taskID)
		return
	}
	if err := s.publisher.PublishTaskReminder(ctx, amqp.NewTaskReminderMessage(taskID, userID, reminder)); err != nil {
		s.metrics.Reminder(string(reminder), "publish_failed")
		log.FromContext(ctx).WarnContext(ctx, "Failed to publish task reminder",
			log.FieldRecordID, taskID, log.FieldError, err)
		return
	}
	s.metrics.Reminder(string(reminder), "published")
}
