package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pocket/internal/core"
)

const taskColumns = `id, user_id, title, description, category, priority, due_date, due_time, completed,
	completed_at, recurrence, reminder, created_at, updated_at`

// CreateTask inserts t with its subtasks. Status is never stored; callers
// derive it when reading.
func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	now := r.now().UTC()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Subtasks = withSubtaskIDs(t.Subtasks)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.Title, t.Description, t.Category, string(t.Priority), toMillis(t.DueDate),
			t.DueTime, t.Completed, nullMillis(t.CompletedAt), string(t.Recurrence), nullMillis(t.Reminder),
			toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if err := insertSubtasks(ctx, tx, t.ID, t.Subtasks); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityTask, t.ID, t.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Task{}, err
	}
	return t, nil
}

// UpdateTask replaces the task row and its full subtask list.
func (r *SQLiteRepository) UpdateTask(ctx context.Context, t core.Task) (core.Task, error) {
	now := r.now().UTC()
	t.Subtasks = withSubtaskIDs(t.Subtasks)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, description = ?, category = ?, priority = ?, due_date = ?, due_time = ?,
			 completed = ?, completed_at = ?, recurrence = ?, reminder = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			t.Title, t.Description, t.Category, string(t.Priority), toMillis(t.DueDate), t.DueTime,
			t.Completed, nullMillis(t.CompletedAt), string(t.Recurrence), nullMillis(t.Reminder), toMillis(now),
			t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE task_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear subtasks: %w", err)
		}
		if err := insertSubtasks(ctx, tx, t.ID, t.Subtasks); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityTask, t.ID, t.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Task{}, err
	}
	return r.GetTask(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, userID, id string) error {
	now := r.now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityTask, id, userID, SyncDelete, now)
	})
}

func (r *SQLiteRepository) GetTask(ctx context.Context, userID, id string) (core.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, ErrNotFound
		}
		return core.Task{}, err
	}

	subtasks, err := r.subtasksFor(ctx, `WHERE s.task_id = ?`, id)
	if err != nil {
		return core.Task{}, err
	}
	t.Subtasks = subtasks[t.ID]
	if t.Subtasks == nil {
		t.Subtasks = []core.Subtask{}
	}
	return t, nil
}

// ListTasks returns the user's tasks ordered by due date.
func (r *SQLiteRepository) ListTasks(ctx context.Context, userID string) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY due_date ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []core.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subtasks, err := r.subtasksFor(ctx,
		`JOIN tasks t ON t.id = s.task_id WHERE t.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Subtasks = subtasks[tasks[i].ID]
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []core.Subtask{}
		}
	}
	return tasks, nil
}

func (r *SQLiteRepository) subtasksFor(ctx context.Context, where string, arg any) (map[string][]core.Subtask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.task_id, s.id, s.title, s.completed FROM subtasks s `+where+` ORDER BY s.task_id, s.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]core.Subtask)
	for rows.Next() {
		var (
			taskID string
			st     core.Subtask
		)
		if err := rows.Scan(&taskID, &st.ID, &st.Title, &st.Completed); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		out[taskID] = append(out[taskID], st)
	}
	return out, rows.Err()
}

func insertSubtasks(ctx context.Context, tx *sql.Tx, taskID string, subtasks []core.Subtask) error {
	for i, st := range subtasks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subtasks (id, task_id, position, title, completed) VALUES (?, ?, ?, ?, ?)`,
			st.ID, taskID, i, st.Title, st.Completed)
		if err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
	}
	return nil
}

func withSubtaskIDs(in []core.Subtask) []core.Subtask {
	out := make([]core.Subtask, len(in))
	for i, st := range in {
		if st.ID == "" {
			st.ID = newID()
		}
		out[i] = st
	}
	return out
}

func scanTask(row scanner) (core.Task, error) {
	var (
		t                     core.Task
		priority, recurrence  string
		due, created, updated int64
		completedAt, reminder sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category, &priority, &due, &t.DueTime,
		&t.Completed, &completedAt, &recurrence, &reminder, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, err
		}
		return core.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.Priority = core.Priority(priority)
	t.Recurrence = core.Recurrence(recurrence)
	t.DueDate = fromMillis(due)
	t.CompletedAt = fromNullMillis(completedAt)
	t.Reminder = fromNullMillis(reminder)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}
