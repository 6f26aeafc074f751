// Package inventory writes rescue outcomes back to the shared Data_Inventories
// Google Sheet, so volunteers working the same spreadsheet see which rows are
// claimed and done.
package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"datarescue-backend/config"
	"datarescue-backend/storage"
)

// column headers matched case-insensitively, substring match as fallback
const (
	colURL          = "URL"
	colClaimed      = "Claimed"
	colDataAdded    = "Data Added"
	colDownloadable = "Dataset Download Possible?"
	colNominated    = "Nominated to EOT / USGWDA"
	colDateDL       = "Date Downloaded"
	colLocation     = "Download Location"
	colSize         = "Dataset Size"
	colExtensions   = "File extensions of data uploads"
	colMetadata     = "Metadata availability info"
	colNotes        = "Notes"
)

// Updater implements the publisher's sheet write-back boundary.
type Updater struct {
	sheetID   string
	sheetName string
	username  string
	svc       *sheets.Service
}

// NewUpdater builds an Updater from the configured service account
// credentials. Returns nil with no error when the sheet integration is not
// configured; callers treat a nil Updater as "skip the write-back".
func NewUpdater(ctx context.Context, cfg config.Config) (*Updater, error) {
	if cfg.GoogleSheetID == "" || cfg.GoogleCredentials == "" {
		return nil, nil
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.GoogleCredentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}
	return &Updater{
		sheetID:   cfg.GoogleSheetID,
		sheetName: cfg.GoogleSheetName,
		username:  cfg.GoogleUsername,
		svc:       svc,
	}, nil
}

// UpdatePublished fills the record's row after a successful publish: claimed
// by, data added, download location, date, size, and extensions.
func (u *Updater) UpdatePublished(ctx context.Context, rec storage.Record, publishedURL string) error {
	columns, err := u.columnMap(ctx)
	if err != nil {
		return err
	}
	row, err := u.findRowByURL(ctx, columns, rec.SourceURL)
	if err != nil {
		return err
	}

	data := u.cellUpdates(columns, row, map[string]string{
		colClaimed:      u.username,
		colDataAdded:    "Y",
		colDownloadable: "Y",
		colNominated:    "Y",
		colDateDL:       rec.DownloadDate,
		colLocation:     publishedURL,
		colSize:         displayFileSize(rec.FileSize),
		colExtensions:   rec.Extensions,
		colMetadata:     "Y",
	})
	return u.batchUpdate(ctx, data)
}

// UpdateUnavailable marks the row for a record with nothing to rescue:
// claimed, data added "N", and the reason in Notes.
func (u *Updater) UpdateUnavailable(ctx context.Context, rec storage.Record, note string) error {
	columns, err := u.columnMap(ctx)
	if err != nil {
		return err
	}
	row, err := u.findRowByURL(ctx, columns, rec.SourceURL)
	if err != nil {
		return err
	}

	data := u.cellUpdates(columns, row, map[string]string{
		colClaimed:      u.username,
		colDataAdded:    "N",
		colDownloadable: "N",
		colNominated:    "N",
		colNotes:        note,
	})
	if _, ok := columns[colNotes]; !ok {
		// no Notes column yet; append one after the last header
		letter := columnLetter(len(columns) + 1)
		data = append(data,
			u.valueRange(letter, 1, colNotes),
			u.valueRange(letter, row, note),
		)
	}
	return u.batchUpdate(ctx, data)
}

func (u *Updater) batchUpdate(ctx context.Context, data []*sheets.ValueRange) error {
	if len(data) == 0 {
		return fmt.Errorf("no data to update")
	}
	_, err := u.svc.Spreadsheets.Values.BatchUpdate(u.sheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update sheet: %w", err)
	}
	return nil
}

func (u *Updater) cellUpdates(columns map[string]string, row int, values map[string]string) []*sheets.ValueRange {
	var data []*sheets.ValueRange
	for name, value := range values {
		letter, ok := columns[name]
		if !ok || value == "" {
			continue
		}
		data = append(data, u.valueRange(letter, row, value))
	}
	return data
}

func (u *Updater) valueRange(letter string, row int, value string) *sheets.ValueRange {
	return &sheets.ValueRange{
		Range:  fmt.Sprintf("%s!%s%d", u.sheetName, letter, row),
		Values: [][]interface{}{{value}},
	}
}

// columnMap reads the header row and maps the known column names to sheet
// letters. Headers match case-insensitively, with a substring fallback for
// sheets that shorten them.
func (u *Updater) columnMap(ctx context.Context) (map[string]string, error) {
	res, err := u.svc.Spreadsheets.Values.
		Get(u.sheetID, fmt.Sprintf("%s!1:1", u.sheetName)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet header: %w", err)
	}
	if len(res.Values) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", u.sheetName)
	}

	headers := make([]string, 0, len(res.Values[0]))
	for _, cell := range res.Values[0] {
		headers = append(headers, strings.TrimSpace(fmt.Sprint(cell)))
	}

	known := []string{
		colURL, colClaimed, colDataAdded, colDownloadable, colNominated,
		colDateDL, colLocation, colSize, colExtensions, colMetadata, colNotes,
	}
	columns := map[string]string{}
	for _, want := range known {
		if i := matchHeader(headers, want); i >= 0 {
			columns[want] = columnLetter(i + 1)
		}
	}
	if _, ok := columns[colURL]; !ok {
		return nil, fmt.Errorf("could not find URL column in sheet %q, headers: %v", u.sheetName, headers)
	}
	return columns, nil
}

func matchHeader(headers []string, want string) int {
	for i, h := range headers {
		if strings.EqualFold(h, want) {
			return i
		}
	}
	wantLower := strings.ToLower(want)
	for i, h := range headers {
		hLower := strings.ToLower(h)
		if h != "" && (strings.Contains(hLower, wantLower) || strings.Contains(wantLower, hLower)) {
			return i
		}
	}
	return -1
}

// findRowByURL scans the URL column for an exact match and returns the
// 1-based row number.
func (u *Updater) findRowByURL(ctx context.Context, columns map[string]string, sourceURL string) (int, error) {
	letter := columns[colURL]
	res, err := u.svc.Spreadsheets.Values.
		Get(u.sheetID, fmt.Sprintf("%s!%s:%s", u.sheetName, letter, letter)).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read url column: %w", err)
	}

	target := strings.TrimSpace(sourceURL)
	for i, row := range res.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == target {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("no row with url %s", sourceURL)
}

// columnLetter converts a 1-based column index to its letter (1 -> A,
// 27 -> AA).
func columnLetter(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// displayFileSize renders a byte count the way a human reads it; unparseable
// values pass through unchanged.
func displayFileSize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", int64(size), units[i])
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
