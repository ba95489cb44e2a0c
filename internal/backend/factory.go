package backend

import (
	"context"
	"fmt"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"pocket/internal/gcp"
	"pocket/internal/log"
	"pocket/internal/notify/calendar"
	notifymem "pocket/internal/notify/memory"
	gsheet "pocket/internal/sheets/google"
	"pocket/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsMirror(ctx, config)
	case MemoryBackend:
		f.logger.Info("Initialized memory mirror")
		return &MirrorResult{Mirror: memory.New(), Type: MemoryBackend}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	opts, err := f.clientOptions(ctx, config, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if !config.SkipHeaders {
		if err := cli.EnsureHeaders(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare sheet headers: %w", err)
		}
	}

	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &MirrorResult{Mirror: cli, Type: SheetsBackend}, nil
}

// CreateScheduler returns the Calendar scheduler when a calendar is
// configured, the in-memory one otherwise.
func (f *DefaultFactory) CreateScheduler(ctx context.Context, config Config) (*SchedulerResult, error) {
	if config.CalendarID == "" {
		f.logger.Info("Calendar not configured, alerts kept in memory")
		return &SchedulerResult{Scheduler: notifymem.New()}, nil
	}

	opts, err := f.clientOptions(ctx, config, gcal.CalendarEventsScope)
	if err != nil {
		return nil, err
	}
	s, err := calendar.New(ctx, config.CalendarID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Calendar client: %w", err)
	}

	f.logger.Info("Initialized Google Calendar scheduler", "calendar_id", config.CalendarID)
	return &SchedulerResult{Scheduler: s, Remote: true}, nil
}

func (f *DefaultFactory) clientOptions(ctx context.Context, config Config, scopes ...string) ([]option.ClientOption, error) {
	if len(config.ClientOptions) > 0 {
		return config.ClientOptions, nil
	}
	opts, err := gcp.ClientOptions(ctx, config.Credentials, scopes...)
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	return opts, nil
}
