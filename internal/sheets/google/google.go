package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ports "hostel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures a Client. Empty sheet names default to the table names.
type Options struct {
	SpreadsheetID     string
	ReservationsSheet string
	ExpensesSheet     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetNames    map[ports.Table]string

	mu       sync.Mutex
	sheetIDs map[string]int64 // numeric sheet ids, needed for row deletion
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: RESERVATIONS_SHEET (default "reservas"),
// EXPENSES_SHEET (default "despesas").
func NewFromEnv(ctx context.Context) (*Client, error) {
	opts := Options{
		SpreadsheetID:     strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ReservationsSheet: strings.TrimSpace(os.Getenv("RESERVATIONS_SHEET")),
		ExpensesSheet:     strings.TrimSpace(os.Getenv("EXPENSES_SHEET")),
		CredentialsJSON:   strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile:   strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		opts.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, opts)
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	reservations := opts.ReservationsSheet
	if reservations == "" {
		reservations = string(ports.Reservations)
	}
	expenses := opts.ExpensesSheet
	if expenses == "" {
		expenses = string(ports.Expenses)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetNames: map[ports.Table]string{
			ports.Reservations: reservations,
			ports.Expenses:     expenses,
		},
		sheetIDs: map[string]int64{},
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case opts.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case opts.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", opts.CredentialsFile)
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetName(table ports.Table) (string, error) {
	name, ok := c.sheetNames[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ports.ErrUnknownTable, table)
	}
	return name, nil
}

func (c *Client) ready() error {
	if c.svc == nil {
		return fmt.Errorf("%w: sheets service not initialized", ports.ErrStoreUnavailable)
	}
	return nil
}

// ReadAll reads the whole sheet; the first row is the header. Date cells come
// back as serial numbers so the locale of the spreadsheet does not matter.
func (c *Client) ReadAll(ctx context.Context, table ports.Table) ([]ports.Row, error) {
	sheet, err := c.sheetName(table)
	if err != nil {
		return nil, err
	}
	if err := c.ready(); err != nil {
		return nil, err
	}
	rng := sheet + "!A:Z"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, unavailable("read "+rng, err)
	}
	return rowsFromValues(resp.Values), nil
}

// Append writes values as given. RAW input keeps ISO dates as text instead of
// letting the sheet locale reinterpret them.
func (c *Client) Append(ctx context.Context, table ports.Table, values []any) error {
	sheet, err := c.sheetName(table)
	if err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return unavailable("append to "+sheet, err)
	}
	return nil
}

// Update overwrites the full column range of the row whose first cell is id.
func (c *Client) Update(ctx context.Context, table ports.Table, id int64, values []any) error {
	sheet, err := c.sheetName(table)
	if err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	n, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, n, columnLetter(len(values)), n)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return unavailable("update "+rng, err)
	}
	return nil
}

// Delete removes the row whose first cell is id, shifting later rows up.
func (c *Client) Delete(ctx context.Context, table ports.Table, id int64) error {
	sheet, err := c.sheetName(table)
	if err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	n, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return unavailable(fmt.Sprintf("delete %s row %d", sheet, n), err)
	}
	return nil
}

// findRow returns the 1-based sheet row number whose column A equals id.
func (c *Client) findRow(ctx context.Context, sheet string, id int64) (int, error) {
	rng := sheet + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return 0, unavailable("read "+rng, err)
	}
	n := rowNumberOf(resp.Values, id)
	if n == 0 {
		return 0, fmt.Errorf("%w: %s id=%d", ports.ErrNotFound, sheet, id)
	}
	return n, nil
}

func (c *Client) sheetID(ctx context.Context, sheet string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[sheet]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, unavailable("read spreadsheet properties", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
	}
	id, ok = c.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("%w: sheet %q not found in spreadsheet", ports.ErrStoreUnavailable, sheet)
	}
	return id, nil
}
