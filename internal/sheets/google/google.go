package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "roadrich/internal/log"
	ports "roadrich/internal/sheets"
)

const DefaultSheetName = "Dépenses"

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string // inline service account key
	CredentialsFile string // path to a service account key
	RetryMax        int
}

// Client mirrors expense rows into one sheet of a Google spreadsheet.
// Column A holds the expense ID and is the lookup key.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// New builds a client authenticated with a service account. Requests go
// through a retrying HTTP client so transient 5xx and 429 answers from the
// Sheets API are retried with backoff.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	jwt, err := goauth.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	if retry.RetryMax <= 0 {
		retry.RetryMax = 4
	}
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 10 * time.Second
	retry.Logger = slog.Default()
	base := retry.StandardClient()
	base.Timeout = 60 * time.Second

	httpClient := jwt.Client(context.WithValue(ctx, oauth2.HTTPClient, base))

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready",
		applog.FieldComponent, applog.ComponentSheets,
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", sheetName(cfg.SheetName),
		"retry_max", retry.RetryMax)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheetName(sheet)}
}

// NewHTTPService creates an unauthenticated service talking to endpoint
// through httpClient, for local emulators.
func NewHTTPService(ctx context.Context, endpoint string, httpClient *http.Client) (*gsheet.Service, error) {
	return gsheet.NewService(ctx,
		goption.WithEndpoint(endpoint),
		goption.WithHTTPClient(httpClient),
		goption.WithoutAuthentication())
}

func sheetName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return DefaultSheetName
	}
	return s
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// a1 quotes the sheet name for an A1 range.
func (c *Client) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheet, "'", "''"), rng)
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.a1("A:H")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// find returns the 1-based sheet row holding id, or 0.
func find(values [][]any, id string) (int, []any) {
	for i, row := range values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, row
		}
	}
	return 0, nil
}

// Upsert rewrites the expense's row in place or appends it. Rows already
// holding a newer version are left alone.
func (c *Client) Upsert(ctx context.Context, r ports.Row) (string, error) {
	if r.ID == "" {
		return "", errors.New("row without id")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return "", err
	}

	if len(values) == 0 {
		hdr := &gsheet.ValueRange{Values: [][]any{header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:H1"), hdr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	vr := &gsheet.ValueRange{Values: [][]any{formatRow(r)}}

	if n, existing := find(values, r.ID); n > 0 {
		if cur, ok := parseRow(existing); ok && cur.Version > r.Version {
			slog.InfoContext(ctx, "Skipping stale mirror row",
				"id", r.ID, "version", r.Version, "sheet_version", cur.Version)
			return c.a1(fmt.Sprintf("A%d:H%d", n, n)), nil
		}
		rng := c.a1(fmt.Sprintf("A%d:H%d", n, n))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:H"), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.a1(fmt.Sprintf("A%d:H%d", len(values)+1, len(values)+1)), nil
}

// Delete blanks the expense's row. Missing rows are ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	n, _ := find(values, id)
	if n == 0 {
		slog.DebugContext(ctx, "Mirror row already absent", "id", id)
		return nil
	}
	rng := c.a1(fmt.Sprintf("A%d:H%d", n, n))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// Rows parses every data row, skipping the header and blank rows.
func (c *Client) Rows(ctx context.Context) ([]ports.Row, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []ports.Row
	for _, v := range values {
		if r, ok := parseRow(v); ok {
			out = append(out, r)
		}
	}
	return out, nil
}
