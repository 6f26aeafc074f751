package sourcing

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"datarescue-backend/lib/sheeturl"
	"datarescue-backend/lib/telemetry"
)

// Candidate is one row pulled from the inventory spreadsheet.
type Candidate struct {
	URL    string
	Office string
	Agency string
}

// rows already claimed by a volunteer or already downloaded are skipped
const (
	claimedColumn  = "Claimed (add your name)"
	downloadColumn = "Download Location"
	officeColumn   = "Office"
	agencyColumn   = "Agency"
)

// Fetcher pulls candidate dataset URLs from a Google Sheets inventory tab via
// the public CSV export endpoint.
type Fetcher struct {
	client         *resty.Client
	spreadsheetURL string
	urlColumn      string
}

func NewFetcher(spreadsheetURL, urlColumn string, timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "DRPPipeline/1.0")
	telemetry.InstrumentResty(client, "drp.sourcing.fetcher")

	return &Fetcher{
		client:         client,
		spreadsheetURL: spreadsheetURL,
		urlColumn:      urlColumn,
	}
}

// Candidates fetches the sheet and returns up to limit candidates plus the
// number of rows skipped by filtering. limit <= 0 means unlimited.
func (f *Fetcher) Candidates(ctx context.Context, limit int) ([]Candidate, int, error) {
	sheetID, gid, err := sheeturl.Parse(f.spreadsheetURL)
	if err != nil {
		return nil, 0, err
	}

	res, err := f.client.R().SetContext(ctx).Get(sheeturl.CSVExportURL(sheetID, gid))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch spreadsheet csv: %w", err)
	}
	if res.IsError() {
		return nil, 0, fmt.Errorf("fetch spreadsheet csv: http %d", res.StatusCode())
	}

	return extractCandidates(res.String(), f.urlColumn, limit)
}

func extractCandidates(csvText, urlColumn string, limit int) ([]Candidate, int, error) {
	// the export endpoint serves UTF-8 with a BOM
	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(csvText, "\uFEFF")))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{urlColumn, claimedColumn, downloadColumn} {
		if _, ok := columns[required]; !ok {
			return nil, 0, fmt.Errorf("csv missing required column %q, available: %v", required, header)
		}
	}

	var candidates []Candidate
	skipped := 0
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if !rowPassesFilter(row, columns) {
			skipped++
			continue
		}
		url := strings.TrimSpace(field(row, columns, urlColumn))
		if url == "" {
			skipped++
			continue
		}
		candidates = append(candidates, Candidate{
			URL:    url,
			Office: strings.TrimSpace(field(row, columns, officeColumn)),
			Agency: strings.TrimSpace(field(row, columns, agencyColumn)),
		})
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	return candidates, skipped, nil
}

// rowPassesFilter keeps rows nobody has claimed or downloaded yet.
func rowPassesFilter(row []string, columns map[string]int) bool {
	claimed := strings.TrimSpace(field(row, columns, claimedColumn))
	downloaded := strings.TrimSpace(field(row, columns, downloadColumn))
	return claimed == "" && downloaded == ""
}

func field(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
