// Package services orchestrates the user-facing operations: identity check,
// validation, persistence with the sync outbox, and best-effort side effects
// such as reminder publication.
package services

import (
	"context"
	"errors"
	"time"

	"pocket/internal/auth"
	"pocket/internal/storage"
)

var (
	// ErrNotAuthenticated is returned when no user identity is in the context.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound covers both missing records and records owned by another user.
	ErrNotFound = errors.New("not found")
)

// Clock returns the current time in the user's location.
type Clock func() time.Time

// LocalClock is the wall clock expressed in loc.
func LocalClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

func requireUser(ctx context.Context) (string, error) {
	id := auth.UserID(ctx)
	if id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// translate maps storage errors onto the service error set.
func translate(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
