// Package sheeturl parses Google Sheets URLs into the pieces needed to build
// a CSV export URL.
package sheeturl

import (
	"fmt"
	"net/url"
	"regexp"
)

var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// Parse extracts the spreadsheet ID and sheet gid from an edit or export URL.
// A missing gid resolves to "0", the first sheet.
func Parse(rawURL string) (sheetID, gid string, err error) {
	match := sheetIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", "", fmt.Errorf("no spreadsheet id in url, expected .../spreadsheets/d/<id>/...: %s", rawURL)
	}
	sheetID = match[1]

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse spreadsheet url: %w", err)
	}
	gid = parsed.Query().Get("gid")
	if gid == "" && parsed.Fragment != "" {
		// edit URLs carry the gid in the fragment, e.g. #gid=101637367
		if frag, err := url.ParseQuery(parsed.Fragment); err == nil {
			gid = frag.Get("gid")
		}
	}
	if gid == "" {
		gid = "0"
	}
	return sheetID, gid, nil
}

// CSVExportURL builds the export URL that serves the given sheet as CSV.
func CSVExportURL(sheetID, gid string) string {
	return fmt.Sprintf(
		"https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s",
		sheetID, gid,
	)
}
