// Package auth is the identity provider: password accounts, signed session
// tokens and the request context that carries the authenticated user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pocket/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// UserStorage is the persistence the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// PasswordAuthenticator registers and verifies bcrypt password accounts.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage, cost: bcrypt.DefaultCost}
}

func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates an account. A duplicate email returns ErrEmailExists.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, credential string) (core.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, ErrInvalidEmail
	}
	if err := a.ValidateCredential(credential); err != nil {
		return core.User{}, err
	}

	if _, err := a.storage.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.storage.CreateUser(ctx, core.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashed),
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if _, lookupErr := a.storage.GetUserByEmail(ctx, email); lookupErr == nil {
			return core.User{}, ErrEmailExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when email and password match. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (core.User, error) {
	u, err := a.storage.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(credential)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}
