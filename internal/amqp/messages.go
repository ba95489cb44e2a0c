package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReminderOp tells the worker whether a task's alerts must be rebuilt or dropped.
type ReminderOp string

const (
	ReminderReschedule ReminderOp = "reschedule"
	ReminderCancel     ReminderOp = "cancel"
)

// TaskReminderMessage identifies a task whose alerts changed. The worker
// loads the task itself, so the message stays small and idempotent.
type TaskReminderMessage struct {
	TaskID    string     `json:"taskId"`
	UserID    string     `json:"userId"`
	Op        ReminderOp `json:"op"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewTaskReminderMessage(taskID, userID string, op ReminderOp) *TaskReminderMessage {
	return &TaskReminderMessage{
		TaskID:    taskID,
		UserID:    userID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *TaskReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TaskReminderMessageFromJSON decodes and validates a message body.
func TaskReminderMessageFromJSON(data []byte) (*TaskReminderMessage, error) {
	var msg TaskReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TaskID == "" || msg.UserID == "" {
		return nil, fmt.Errorf("task reminder message missing ids")
	}
	switch msg.Op {
	case ReminderReschedule, ReminderCancel:
	default:
		return nil, fmt.Errorf("unknown reminder op %q", msg.Op)
	}
	return &msg, nil
}
