package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"

	"pocket/internal/cli"
	"pocket/internal/config"
	"pocket/internal/gcp"
	"pocket/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	creds := config.Load().GoogleCredentials()
	cfg, err := gcp.OAuthConfig(creds, sheets.SpreadsheetsScope, gcal.CalendarEventsScope)
	if err != nil {
		fatal(logger, "OAuth client unavailable, set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE", err)
	}

	// The OAuth client must list http://localhost:<port>/callback as an
	// authorized redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "Callback server failed", err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	var code string
	select {
	case code = <-codeCh:
	case <-time.After(5 * time.Minute):
		fatal(logger, "Authorization timed out", nil)
	case <-interrupt:
		fatal(logger, "Interrupted", nil)
	}

	tok, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		fatal(logger, "Token exchange failed", err)
	}

	outFile := creds.OAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}
	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		fatal(logger, "Open token file failed", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		fatal(logger, "Write token failed", err)
	}
	logger.Info("Saved OAuth token", "path", outFile)
}

func fatal(logger *log.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, log.FieldError, err, log.FieldErrorType, log.ErrorTypeAuth)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
