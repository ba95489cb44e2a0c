package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "pocket/internal/sheets"
)

// DefaultTabs maps each mirrored entity to its sheet tab.
var DefaultTabs = map[string]string{
	"transaction": "Transactions",
	"task":        "Tasks",
	"payout":      "Payouts",
	"person":      "People",
}

const defaultCacheValidDuration = 5 * time.Minute

// Client mirrors records into one spreadsheet, one tab per entity. Column A
// holds the record id; row 1 holds the headers.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[string]string

	cacheValidDuration time.Duration
	mu                 sync.Mutex
	rowCaches          map[string]*rowCache
}

// rowCache remembers which row holds each id in a tab.
type rowCache struct {
	rows      map[string]int
	expiresAt time.Time
}

var _ ports.RecordMirror = (*Client)(nil)

// New creates a Sheets mirror for spreadsheetID. opts usually come from
// gcp.ClientOptions.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string) *Client {
	tabs := make(map[string]string, len(DefaultTabs))
	for k, v := range DefaultTabs {
		tabs[k] = v
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		tabs:               tabs,
		cacheValidDuration: defaultCacheValidDuration,
		rowCaches:          make(map[string]*rowCache),
	}
}

// EnsureHeaders writes the header row to every tab whose first row is empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	for entity, tab := range c.tabs {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!1:1").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s headers: %w", tab, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		row := toInterfaces(ports.Headers[entity])
		vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write %s headers: %w", tab, err)
		}
	}
	return nil
}

// Upsert overwrites the row holding r.ID, or appends a new one.
func (c *Client) Upsert(ctx context.Context, r ports.Record) error {
	tab, err := c.tab(r.Entity)
	if err != nil {
		return err
	}
	row, found, err := c.findRow(ctx, tab, r.ID)
	if err != nil {
		return err
	}

	values := append([]string{r.ID}, r.Values...)
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(values)}}

	if found {
		rng := fmt.Sprintf("%s!A%d", tab, row)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s row %d: %w", tab, row, err)
		}
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tab+"!A:A", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	c.invalidate(tab)
	return nil
}

// Delete clears the row holding id. A missing row is not an error.
func (c *Client) Delete(ctx context.Context, entity, id string) error {
	tab, err := c.tab(entity)
	if err != nil {
		return err
	}
	row, found, err := c.findRow(ctx, tab, id)
	if err != nil || !found {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:Z%d", tab, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s row %d: %w", tab, row, err)
	}

	c.mu.Lock()
	if rc, ok := c.rowCaches[tab]; ok {
		delete(rc.rows, id)
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) tab(entity string) (string, error) {
	tab, ok := c.tabs[entity]
	if !ok {
		return "", fmt.Errorf("no sheet tab for entity %q", entity)
	}
	return tab, nil
}

func (c *Client) findRow(ctx context.Context, tab, id string) (int, bool, error) {
	if c.svc == nil {
		return 0, false, errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	rc, ok := c.rowCaches[tab]
	if ok && time.Now().Before(rc.expiresAt) {
		row, found := rc.rows[id]
		c.mu.Unlock()
		return row, found, nil
	}
	c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s ids: %w", tab, err)
	}

	rows := make(map[string]int, len(resp.Values))
	for i, v := range resp.Values {
		// Row 1 is the header row.
		if i == 0 || len(v) == 0 {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v[0])); s != "" {
			rows[s] = i + 1
		}
	}

	c.mu.Lock()
	c.rowCaches[tab] = &rowCache{rows: rows, expiresAt: time.Now().Add(c.cacheValidDuration)}
	c.mu.Unlock()

	row, found := rows[id]
	return row, found, nil
}

func (c *Client) invalidate(tab string) {
	c.mu.Lock()
	delete(c.rowCaches, tab)
	c.mu.Unlock()
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
