// This file implements request decoding: JSON bodies into domain records and
// query strings into filters.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pocket/internal/core"
	"pocket/internal/stats"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD, read as local midnight in loc, or RFC 3339.
// Empty input is the zero time.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
	}
	return t, nil
}

// parseEndDate is parseDate for the upper bound of an inclusive range: a
// bare YYYY-MM-DD covers that whole local day.
func parseEndDate(s string, loc *time.Location) (time.Time, error) {
	if d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return parseDate(s, loc)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

type transactionRequest struct {
	Title         string               `json:"title"`
	Amount        core.Money           `json:"amount"`
	Type          core.TransactionType `json:"type"`
	Category      string               `json:"category"`
	PaymentMethod string               `json:"paymentMethod"`
	Notes         string               `json:"notes"`
	Date          string               `json:"date"`
}

func (req transactionRequest) toTransaction(loc *time.Location) (core.Transaction, error) {
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Title:         sanitizeInput(req.Title),
		Amount:        req.Amount,
		Type:          req.Type,
		Category:      sanitizeInput(req.Category),
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Notes:         sanitizeInput(req.Notes),
		Date:          date,
	}, nil
}

type taskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    core.Priority   `json:"priority"`
	DueDate     string          `json:"dueDate"`
	DueTime     string          `json:"dueTime"`
	Completed   bool            `json:"completed"`
	Recurrence  core.Recurrence `json:"recurrence"`
	Subtasks    []core.Subtask  `json:"subtasks"`
	Reminder    *time.Time      `json:"reminder"`
}

func (req taskRequest) toTask(loc *time.Location) (core.Task, error) {
	due, err := parseDate(req.DueDate, loc)
	if err != nil {
		return core.Task{}, err
	}
	subtasks := make([]core.Subtask, 0, len(req.Subtasks))
	for _, st := range req.Subtasks {
		st.Title = sanitizeInput(st.Title)
		subtasks = append(subtasks, st)
	}
	return core.Task{
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		Priority:    req.Priority,
		DueDate:     due,
		DueTime:     strings.TrimSpace(req.DueTime),
		Completed:   req.Completed,
		Recurrence:  req.Recurrence,
		Subtasks:    subtasks,
		Reminder:    req.Reminder,
	}, nil
}

type payoutRequest struct {
	PersonID    string            `json:"personId"`
	PersonName  string            `json:"personName"`
	PersonEmail string            `json:"personEmail"`
	Amount      core.Money        `json:"amount"`
	Type        core.PayoutType   `json:"type"`
	Status      core.PayoutStatus `json:"status"`
	DueDate     string            `json:"dueDate"`
	Notes       string            `json:"notes"`
}

func (req payoutRequest) toPayout(loc *time.Location) (core.Payout, error) {
	due, err := parseDate(req.DueDate, loc)
	if err != nil {
		return core.Payout{}, err
	}
	return core.Payout{
		PersonID:    strings.TrimSpace(req.PersonID),
		PersonName:  sanitizeInput(req.PersonName),
		PersonEmail: sanitizeInput(req.PersonEmail),
		Amount:      req.Amount,
		Type:        req.Type,
		Status:      req.Status,
		DueDate:     due,
		Notes:       sanitizeInput(req.Notes),
	}, nil
}

// ParseTransactionFilter reads type, timeline, category, start and end.
// A start or end without a timeline implies the custom timeline.
func ParseTransactionFilter(q url.Values, loc *time.Location) (stats.TransactionFilter, error) {
	f := stats.TransactionFilter{
		Type:     stats.TypeFilter(strings.ToLower(strings.TrimSpace(q.Get("type")))),
		Timeline: stats.Timeline(strings.ToLower(strings.TrimSpace(q.Get("timeline")))),
		Category: strings.TrimSpace(q.Get("category")),
	}
	var err error
	if f.StartDate, err = parseDate(q.Get("start"), loc); err != nil {
		return stats.TransactionFilter{}, err
	}
	if f.EndDate, err = parseEndDate(q.Get("end"), loc); err != nil {
		return stats.TransactionFilter{}, err
	}
	if f.Timeline == stats.TimelineAll && (!f.StartDate.IsZero() || !f.EndDate.IsZero()) {
		f.Timeline = stats.TimelineCustom
	}
	return f, f.Validate()
}

// ParseTaskFilter reads category, priority, status and date.
func ParseTaskFilter(q url.Values, loc *time.Location) (stats.TaskFilter, error) {
	f := stats.TaskFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Priority: core.Priority(strings.ToLower(strings.TrimSpace(q.Get("priority")))),
		Status:   core.TaskStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
	}
	date, err := parseDate(q.Get("date"), loc)
	if err != nil {
		return stats.TaskFilter{}, err
	}
	if !date.IsZero() {
		f.Date = &date
	}
	return f, f.Validate()
}
