// Package gcp turns Google credentials from configuration into API client
// options shared by the Sheets mirror and the Calendar scheduler.
package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Credentials names where Google credentials come from. A service account
// wins over an OAuth client when both are set. Inline JSON wins over a file.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

var (
	ErrMissingCredentials = errors.New("missing google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or an OAuth client)")
	ErrMissingOAuthClient = errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	ErrMissingOAuthToken  = errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
)

// Configured reports whether any credential source is set.
func (c Credentials) Configured() bool {
	return c.hasServiceAccount() || c.hasOAuthClient()
}

func (c Credentials) hasServiceAccount() bool {
	return strings.TrimSpace(c.ServiceAccountJSON) != "" || strings.TrimSpace(c.ServiceAccountFile) != ""
}

func (c Credentials) hasOAuthClient() bool {
	return strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != ""
}

// ClientOptions builds the options for a Google API service with the given scopes.
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]option.ClientOption, error) {
	if creds.hasServiceAccount() {
		b, err := readInlineOrFile(creds.ServiceAccountJSON, creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account: %w", err)
		}
		return []option.ClientOption{
			option.WithCredentialsJSON(b),
			option.WithScopes(scopes...),
		}, nil
	}

	if !creds.hasOAuthClient() {
		return nil, ErrMissingCredentials
	}

	cfg, err := OAuthConfig(creds, scopes...)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(creds)
	if err != nil {
		return nil, err
	}

	// The pooled client carries token refreshes and API calls alike.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, NewPooledHTTPClient())
	return []option.ClientOption{option.WithHTTPClient(cfg.Client(ctx, tok))}, nil
}

// OAuthConfig parses the OAuth client for the given scopes.
func OAuthConfig(creds Credentials, scopes ...string) (*oauth2.Config, error) {
	if !creds.hasOAuthClient() {
		return nil, ErrMissingOAuthClient
	}
	b, err := readInlineOrFile(creds.OAuthClientJSON, creds.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func loadToken(creds Credentials) (*oauth2.Token, error) {
	if strings.TrimSpace(creds.OAuthTokenJSON) == "" && strings.TrimSpace(creds.OAuthTokenFile) == "" {
		return nil, ErrMissingOAuthToken
	}
	b, err := readInlineOrFile(creds.OAuthTokenJSON, creds.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	return os.ReadFile(strings.TrimSpace(path))
}

// NewPooledHTTPClient returns an HTTP client tuned for long-lived use
// against Google APIs.
func NewPooledHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
