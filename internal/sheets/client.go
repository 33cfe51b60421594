// Package sheets implements the remote spreadsheet sink on top of the Google
// Sheets v4 and Drive v3 APIs. The sink is append-only: a worksheet is located
// (or created with a header row) once at startup and rows are appended to it.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	valueInputOption    = "USER_ENTERED"
	newSheetRows        = 1000
	newSheetColumns     = 10
)

// ErrNoCredentials is returned when neither inline JSON nor a credentials file is configured.
var ErrNoCredentials = errors.New("no google service account credentials configured")

// Outcome tags the result of a worksheet lookup.
type Outcome int

const (
	// Failed means the worksheet could not be located or created.
	Failed Outcome = iota
	// Found means the worksheet already existed.
	Found
	// Created means the worksheet was added together with its header row.
	Created
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Created:
		return "created"
	default:
		return "failed"
	}
}

// Resolution is the tagged result of FindOrCreate. Worksheet is nil unless
// Outcome is Found or Created; Err is set only when Outcome is Failed.
type Resolution struct {
	Outcome   Outcome
	Worksheet *Worksheet
	Err       error
}

// Options configures a Client.
type Options struct {
	// CredentialsJSON is the service account key itself; it takes precedence
	// over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions are appended after credentials, e.g. a custom endpoint.
	ClientOptions []option.ClientOption
}

// Client wraps the Sheets and Drive services.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
	log    *slog.Logger
}

// NewClient authenticates with a service account and builds the API services.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := make([]option.ClientOption, 0, len(opts.ClientOptions)+2)
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		if _, err := os.Stat(opts.CredentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file %q: %w", opts.CredentialsFile, err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case len(opts.ClientOptions) == 0:
		return nil, ErrNoCredentials
	}
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsScope, drive.DriveReadonlyScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	sheetsSvc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		sheets: sheetsSvc,
		drive:  driveSvc,
		log:    logger.With("component", "sheets"),
	}, nil
}

// SpreadsheetID returns the ID of the spreadsheet called name, searching the
// files shared with the service account.
func (c *Client) SpreadsheetID(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
	list, err := c.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search spreadsheet %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found", name)
	}
	return list.Files[0].Id, nil
}

// FindOrCreate locates the worksheet titled title in spreadsheet spreadsheetID,
// creating it with header as its first row when absent. It never returns an
// error directly: failures are reported through Resolution.Outcome.
func (c *Client) FindOrCreate(ctx context.Context, spreadsheetID, title string, header []string) Resolution {
	ss, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return c.failed(ctx, fmt.Errorf("failed to open spreadsheet %s: %w", spreadsheetID, err))
	}

	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.log.InfoContext(ctx, "Worksheet found", "spreadsheet_id", spreadsheetID, "worksheet", title)
			return Resolution{Outcome: Found, Worksheet: c.worksheet(spreadsheetID, title)}
		}
	}

	c.log.InfoContext(ctx, "Worksheet not found, creating", "spreadsheet_id", spreadsheetID, "worksheet", title)
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}
	if _, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return c.failed(ctx, fmt.Errorf("failed to create worksheet %q: %w", title, err))
	}

	ws := c.worksheet(spreadsheetID, title)
	if err := ws.AppendRow(ctx, header); err != nil {
		return c.failed(ctx, fmt.Errorf("failed to write header to worksheet %q: %w", title, err))
	}

	c.log.InfoContext(ctx, "Worksheet created", "spreadsheet_id", spreadsheetID, "worksheet", title)
	return Resolution{Outcome: Created, Worksheet: ws}
}

func (c *Client) failed(ctx context.Context, err error) Resolution {
	c.log.ErrorContext(ctx, "Worksheet resolution failed", "error", err)
	return Resolution{Outcome: Failed, Err: err}
}

func (c *Client) worksheet(spreadsheetID, title string) *Worksheet {
	return &Worksheet{
		values:        c.sheets.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		title:         title,
	}
}

// Worksheet is a resolved, append-only worksheet handle. It holds no mutable
// state and is safe for concurrent use.
type Worksheet struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	title         string
}

// Title returns the worksheet name.
func (w *Worksheet) Title() string {
	return w.title
}

// AppendRow appends row after the last non-empty row of the worksheet.
func (w *Worksheet) AppendRow(ctx context.Context, row []string) error {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}

	_, err := w.values.Append(w.spreadsheetID, quoteSheet(w.title)+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{cells},
	}).ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row to %q: %w", w.title, err)
	}
	return nil
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// escapeQuery escapes a literal for a Drive search query.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
