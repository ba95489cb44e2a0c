package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the
// process default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: ComponentApp,
	}
}

// Middleware stores a request-scoped logger in the request context. The
// request id, when extractRequestID yields one, is attached to every line.
func Middleware(logger *Logger, extractRequestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped := logger.WithComponent(ComponentHTTP)
			if extractRequestID != nil {
				if id := extractRequestID(r.Context()); id != "" {
					scoped = scoped.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), scoped)))
		})
	}
}

// LogError logs err with its operation and error category.
func LogError(ctx context.Context, msg string, err error, operation, errorType string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation).WithErrorType(errorType)
	FromContext(ctx).ErrorContext(ctx, msg, fields.ToSlice()...)
}

// LogRecordChange logs a successful mutation of a user record.
func LogRecordChange(ctx context.Context, operation, entity, id, userID string) {
	fields := NewFields().
		WithOperation(operation).
		WithRecord(entity, id).
		WithUser(userID)
	FromContext(ctx).InfoContext(ctx, "Record changed", fields.ToSlice()...)
}
