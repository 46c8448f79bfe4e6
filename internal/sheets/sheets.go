// Package sheets stores interaction records as rows of a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"faq-chatter/internal/storage"
)

// TimestampLayout matches the en-US locale rendering used in the sheet,
// e.g. "1/15/2024, 3:04:05 PM".
const TimestampLayout = "1/2/2006, 3:04:05 PM"

var header = []interface{}{"Timestamp", "User Question", "Bot Response", "Response Type"}

type Sink struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location
}

func New(svc *gsheets.Service, spreadsheetID, sheet string, loc *time.Location) *Sink {
	if loc == nil {
		loc = time.UTC
	}
	return &Sink{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet, loc: loc}
}

// NewFromCredentialsFile authenticates with a service account key file.
func NewFromCredentialsFile(ctx context.Context, path, spreadsheetID, sheet string, loc *time.Location) (*Sink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheet, loc), nil
}

func (s *Sink) Append(ctx context.Context, rec storage.Record) error {
	row := []interface{}{
		rec.Timestamp.In(s.loc).Format(TimestampLayout),
		rec.Question,
		rec.Response,
		rec.Kind.String(),
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheet+"!A:D", &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify("append row", err)
	}
	return nil
}

// Initialize adds the tab and writes the header row when row 1 is empty. A
// tab that already exists is not an error, and its first row is never
// overwritten.
func (s *Sink) Initialize(ctx context.Context) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title:          s.sheet,
					GridProperties: &gsheets.GridProperties{RowCount: 1000, ColumnCount: 4},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil && !alreadyExists(err) {
		return fmt.Errorf("add sheet %q: %w", s.sheet, err)
	}
	first, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheet+"!A1:D1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(first.Values) > 0 && !blankRow(first.Values[0]) {
		return nil
	}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheet+"!A1:D1", &gsheets.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Load reads every data row below the header. Rows with an unknown type
// label or an unparsable timestamp are skipped.
func (s *Sink) Load(ctx context.Context) ([]storage.Record, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheet+"!A2:D").Context(ctx).Do()
	if err != nil {
		err = classify("read rows", err)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	records := make([]storage.Record, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) < 4 {
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, cell(row[0]), s.loc)
		if err != nil {
			continue
		}
		kind, err := storage.ParseKind(cell(row[3]))
		if err != nil {
			continue
		}
		records = append(records, storage.Record{
			Timestamp: ts,
			Question:  cell(row[1]),
			Response:  cell(row[2]),
			Kind:      kind,
		})
	}
	return records, nil
}

func blankRow(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(cell(v)) != "" {
			return false
		}
	}
	return true
}

func cell(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// classify maps a missing tab to storage.ErrNotFound.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound ||
			(gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")) {
			return fmt.Errorf("%s: %w: %s", op, storage.ErrNotFound, gerr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return strings.Contains(strings.ToLower(gerr.Message), "already exists")
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
