package backend

import (
	"context"

	"google.golang.org/api/option"

	"pocket/internal/gcp"
	"pocket/internal/notify"
	"pocket/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// MirrorResult contains the remote mirror and optional cleanup function
type MirrorResult struct {
	Mirror  sheets.RecordMirror
	Type    BackendType
	Cleanup CleanupFunc
}

// SchedulerResult contains the alert scheduler and whether it is remote.
type SchedulerResult struct {
	Scheduler notify.Scheduler
	Remote    bool
}

// Factory creates the outbound collaborators based on configuration
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
	CreateScheduler(ctx context.Context, config Config) (*SchedulerResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Mirror backend type
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID string
	// Skip writing header rows on startup.
	SkipHeaders bool

	// Empty keeps alerts in memory.
	CalendarID string

	Credentials gcp.Credentials
	// ClientOptions replace credential resolution when set.
	ClientOptions []option.ClientOption
}

// BackendType represents the type of mirror backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
