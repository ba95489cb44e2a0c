package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pocket/internal/core"
)

var errNoUser = errors.New("no user")

type fakeUsers struct {
	byEmail map[string]core.User
}

func (f *fakeUsers) CreateUser(_ context.Context, u core.User) (core.User, error) {
	key := strings.ToLower(u.Email)
	if _, ok := f.byEmail[key]; ok {
		return core.User{}, errors.New("UNIQUE constraint failed")
	}
	u.ID = "u-" + key
	f.byEmail[key] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return core.User{}, errNoUser
	}
	return u, nil
}

func newTestAuthenticator() *PasswordAuthenticator {
	a := NewPasswordAuthenticator(&fakeUsers{byEmail: map[string]core.User{}})
	a.cost = bcrypt.MinCost
	return a
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := newTestAuthenticator()
	ctx := context.Background()

	u, err := a.Register(ctx, " ana@example.com ", "Ana", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.PasswordHash == "correct horse" || u.Email != "ana@example.com" {
		t.Fatalf("registered user = %+v", u)
	}

	got, err := a.Authenticate(ctx, "ana@example.com", "correct horse")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate() = %+v, %v", got, err)
	}
	if _, err := a.Authenticate(ctx, "ana@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestRegister_Rejects(t *testing.T) {
	a := newTestAuthenticator()
	ctx := context.Background()
	if _, err := a.Register(ctx, "ana@example.com", "", "long enough"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, email, password string
		want                  error
	}{
		{"short password", "ben@example.com", "short", ErrWeakPassword},
		{"bad email", "not-an-email", "long enough", ErrInvalidEmail},
		{"duplicate", "ANA@example.com", "long enough", ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Register(ctx, tt.email, "", tt.password); !errors.Is(err, tt.want) {
				t.Fatalf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJWT_RoundTripAndExpiry(t *testing.T) {
	m := NewJWTManager(strings.Repeat("s", 32), time.Hour)
	issued := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, expires, err := m.Generate(core.User{ID: "u1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !expires.Equal(issued.Add(time.Hour)) {
		t.Errorf("expires = %v", expires)
	}

	claims, err := m.Validate(token)
	if err != nil || claims.UserID != "u1" || claims.Email != "ana@example.com" {
		t.Fatalf("Validate() = %+v, %v", claims, err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v", err)
	}

	other := NewJWTManager(strings.Repeat("x", 32), time.Hour)
	other.now = func() time.Time { return issued }
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret error = %v", err)
	}
}

func TestRequireAuth(t *testing.T) {
	m := NewJWTManager(strings.Repeat("s", 32), time.Hour)
	token, _, err := m.Generate(core.User{ID: "u1", Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	var gotErr error
	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	}
	h := RequireAuth(m, onError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserID(r.Context())))
	}))

	tests := []struct {
		name   string
		header string
		want   error
		body   string
	}{
		{"valid", "Bearer " + token, nil, "u1"},
		{"missing", "", ErrMissingToken, ""},
		{"wrong scheme", "Basic " + token, ErrInvalidToken, ""},
		{"garbage", "Bearer nope", ErrInvalidToken, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotErr = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if tt.want == nil {
				if rr.Code != http.StatusOK || rr.Body.String() != tt.body {
					t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
				}
				return
			}
			if !errors.Is(gotErr, tt.want) {
				t.Fatalf("error = %v, want %v", gotErr, tt.want)
			}
		})
	}
}

func TestUserID_Unauthenticated(t *testing.T) {
	if id := UserID(context.Background()); id != "" {
		t.Fatalf("UserID() = %q, want empty", id)
	}
}
