package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"pocket/internal/core"
	"pocket/internal/notify"
)

const (
	// TaskIDProperty tags every event with the task it alerts for.
	TaskIDProperty = "pocket_task_id"
	kindProperty   = "pocket_alert"

	eventLength = 15 * time.Minute
)

// Scheduler turns alerts into calendar events with a popup reminder at the
// event start.
type Scheduler struct {
	srv        *gcal.Service
	calendarID string
}

var _ notify.Scheduler = (*Scheduler)(nil)

// New creates a calendar scheduler. opts usually come from gcp.ClientOptions.
func New(ctx context.Context, calendarID string, opts ...option.ClientOption) (*Scheduler, error) {
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		return nil, errors.New("missing CALENDAR_ID")
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Scheduler{srv: srv, calendarID: calendarID}, nil
}

func (s *Scheduler) Schedule(ctx context.Context, task core.Task, alerts []notify.Alert) error {
	for _, a := range alerts {
		if _, err := s.srv.Events.Insert(s.calendarID, toEvent(task, a)).Context(ctx).Do(); err != nil {
			return fmt.Errorf("insert %s alert for task %s: %w", a.Kind, task.ID, err)
		}
	}
	return nil
}

// Cancel deletes every event tagged with taskID.
func (s *Scheduler) Cancel(ctx context.Context, taskID string) error {
	var ids []string
	call := s.srv.Events.List(s.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, taskID)).
		ShowDeleted(false)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, ev := range page.Items {
			ids = append(ids, ev.Id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list events for task %s: %w", taskID, err)
	}

	for _, id := range ids {
		if err := s.srv.Events.Delete(s.calendarID, id).Context(ctx).Do(); err != nil && !isGone(err) {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
	}
	return nil
}

func toEvent(task core.Task, a notify.Alert) *gcal.Event {
	summary := task.Title
	switch a.Kind {
	case notify.AlertBeforeDue:
		summary = "Due soon: " + task.Title
	case notify.AlertDue:
		summary = "Due: " + task.Title
	}
	return &gcal.Event{
		Summary:     summary,
		Description: task.Description,
		Start:       &gcal.EventDateTime{DateTime: a.At.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: a.At.Add(eventLength).Format(time.RFC3339)},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				TaskIDProperty: task.ID,
				kindProperty:   string(a.Kind),
			},
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: 0, ForceSendFields: []string{"Minutes"}}},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
