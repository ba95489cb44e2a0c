package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"

	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusOverdue   TaskStatus = "overdue"

	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"

	PayTo       PayoutType = "pay_to"
	ReceiveFrom PayoutType = "receive_from"

	PayoutPending   PayoutStatus = "pending"
	PayoutPaid      PayoutStatus = "paid"
	PayoutReceived  PayoutStatus = "received"
	PayoutCancelled PayoutStatus = "cancelled"
)

// MaxTitleLength bounds titles of every record kind.
const MaxTitleLength = 200

type (
	TransactionType string
	Priority        string
	TaskStatus      string
	Recurrence      string
	PayoutType      string
	PayoutStatus    string

	Transaction struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		Title         string          `json:"title"`
		Amount        Money           `json:"amount"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"paymentMethod"`
		Notes         string          `json:"notes,omitempty"`
		Date          time.Time       `json:"date"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	Subtask struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Completed bool   `json:"completed"`
	}

	Task struct {
		ID          string     `json:"id"`
		UserID      string     `json:"userId"`
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		Category    string     `json:"category"`
		Priority    Priority   `json:"priority"`
		Status      TaskStatus `json:"status"`
		DueDate     time.Time  `json:"dueDate"`
		DueTime     string     `json:"dueTime,omitempty"` // HH:MM, local to DueDate
		Completed   bool       `json:"completed"`
		CompletedAt *time.Time `json:"completedAt,omitempty"`
		Recurrence  Recurrence `json:"recurrence"`
		Subtasks    []Subtask  `json:"subtasks"`
		Reminder    *time.Time `json:"reminder,omitempty"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	Payout struct {
		ID          string       `json:"id"`
		UserID      string       `json:"userId"`
		PersonID    string       `json:"personId"`
		PersonName  string       `json:"personName"`
		PersonEmail string       `json:"personEmail,omitempty"`
		Amount      Money        `json:"amount"`
		Type        PayoutType   `json:"type"`
		Status      PayoutStatus `json:"status"`
		DueDate     time.Time    `json:"dueDate"`
		Notes       string       `json:"notes,omitempty"`
		CreatedAt   time.Time    `json:"createdAt"`
		UpdatedAt   time.Time    `json:"updatedAt"`
		PaidAt      *time.Time   `json:"paidAt,omitempty"`
	}

	// Person is a payout counterparty. TotalOwed, LastTransactionDate and
	// TransactionCount are derived from the person's payouts on every read.
	Person struct {
		ID                  string     `json:"id"`
		UserID              string     `json:"userId"`
		Name                string     `json:"name"`
		Email               string     `json:"email,omitempty"`
		TotalOwed           Money      `json:"totalOwed"`
		LastTransactionDate *time.Time `json:"lastTransactionDate,omitempty"`
		TransactionCount    int        `json:"transactionCount"`
		CreatedAt           time.Time  `json:"createdAt"`
	}

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		DisplayName  string    `json:"displayName"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}
)

var (
	ErrEmptyTitle        = errors.New("empty title")
	ErrTitleTooLong      = errors.New("title too long")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid type")
	ErrEmptyCategory     = errors.New("empty category")
	ErrMissingDate       = errors.New("missing date")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidDueTime    = errors.New("invalid due time")
	ErrEmptyPersonName   = errors.New("empty person name")
	ErrStatusMismatch    = errors.New("status does not match payout type")
	ErrEmptySubtask      = errors.New("empty subtask title")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var validationErrors = []error{
	ErrEmptyTitle, ErrTitleTooLong, ErrInvalidAmount, ErrInvalidType,
	ErrEmptyCategory, ErrMissingDate, ErrInvalidPriority, ErrInvalidStatus,
	ErrInvalidRecurrence, ErrInvalidDueTime, ErrEmptyPersonName,
	ErrStatusMismatch, ErrEmptySubtask, ErrInvalidTransition,
}

// IsValidationError reports whether err wraps one of the record validation errors.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t TransactionType) IsValid() bool { return t == Income || t == Expense }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

func (t PayoutType) IsValid() bool { return t == PayTo || t == ReceiveFrom }

func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutPending, PayoutPaid, PayoutReceived, PayoutCancelled:
		return true
	}
	return false
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Task) Validate() error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Recurrence.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, t.Recurrence)
	}
	if t.DueDate.IsZero() {
		return ErrMissingDate
	}
	if t.DueTime != "" {
		if _, _, err := ParseClock(t.DueTime); err != nil {
			return err
		}
	}
	for _, st := range t.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			return ErrEmptySubtask
		}
	}
	return nil
}

// ParseClock parses an "HH:MM" wall clock value.
func ParseClock(s string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDueTime, s)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func (p Payout) Validate() error {
	if strings.TrimSpace(p.PersonName) == "" {
		return ErrEmptyPersonName
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	if (p.Type == PayTo && p.Status == PayoutReceived) || (p.Type == ReceiveFrom && p.Status == PayoutPaid) {
		return fmt.Errorf("%w: %s cannot be %s", ErrStatusMismatch, p.Type, p.Status)
	}
	if p.DueDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// ResolvedStatus is the terminal status a payout reaches once settled.
func (p Payout) ResolvedStatus() PayoutStatus {
	if p.Type == PayTo {
		return PayoutPaid
	}
	return PayoutReceived
}

// IsResolved reports whether the payout has been paid or received.
func (p Payout) IsResolved() bool {
	return p.Status == PayoutPaid || p.Status == PayoutReceived
}

// Signed returns the payout amount from the user's point of view:
// positive when the counterparty owes the user, negative otherwise.
func (p Payout) Signed() Money {
	if p.Type == PayTo {
		return p.Amount.Neg()
	}
	return p.Amount
}
