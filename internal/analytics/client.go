// Package analytics talks to the optional remote analytics service and
// builds the equivalent report locally when it cannot be reached.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pocket/internal/core"
	"pocket/internal/stats"
)

// ErrUnavailable wraps every failure to obtain a remote report.
var ErrUnavailable = errors.New("analytics service unavailable")

const maxResponseBytes = 4 << 20

// Report is the analytics view of a user's transactions.
type Report struct {
	Summary    stats.TransactionStats `json:"summary"`
	Categories []stats.CategoryTotal  `json:"categories"`
	Monthly    []stats.MonthTotal     `json:"monthly"`
	Insights   []string               `json:"insights,omitempty"`
}

type analyzeRequest struct {
	UserID       string             `json:"userId"`
	Transactions []core.Transaction `json:"transactions"`
}

// Client calls POST {baseURL}/v1/analyze.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// Analyze sends the full transaction list and decodes the service's report.
func (c *Client) Analyze(ctx context.Context, userID string, txs []core.Transaction) (Report, error) {
	body, err := json.Marshal(analyzeRequest{UserID: userID, Transactions: txs})
	if err != nil {
		return Report{}, fmt.Errorf("encode analytics request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return Report{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&report); err != nil {
		return Report{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return report, nil
}
