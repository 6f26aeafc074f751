// Package urlutil validates and probes candidate dataset URLs. Government
// portals frequently serve "page not found" bodies with a 200 status, so
// availability checks inspect the page body as well as the status code.
package urlutil

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"datarescue-backend/lib/telemetry"
)

// BrowserHeaders mimic a real browser so abuse filters on data portals don't
// block the probe.
var BrowserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9," +
		"image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// NewClient returns an instrumented resty client with browser headers set.
func NewClient(timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(BrowserHeaders)
	telemetry.InstrumentResty(client, "drp.lib.urlutil")
	return client
}

// IsValidURL reports whether url is a plausible http(s) URL.
func IsValidURL(url string) bool {
	url = strings.TrimSpace(url)
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

var notFoundPhrases = []string{
	"page not found",
	"the page you requested could not be found",
	"sorry, the page you requested could not be found",
}

// BodyLooksLikeNotFound reports whether an HTML body reads as an error page
// even though the server returned 200. It checks the rendered body text so
// phrases inside scripts or attributes don't trigger false positives; if the
// document fails to parse the raw text is checked instead.
func BodyLooksLikeNotFound(body string) bool {
	text := body
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		if rendered := doc.Find("body").Text(); rendered != "" {
			text = rendered
		}
	}
	text = strings.ToLower(text)
	for _, phrase := range notFoundPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// Page is the result of fetching a candidate URL.
type Page struct {
	StatusCode  int
	Body        string
	ContentType string
	// LogicalNotFound is set when the server said 200 but the HTML body is
	// a not-found error page. StatusCode is rewritten to 404 in that case.
	LogicalNotFound bool
}

// FetchPage fetches url with browser headers and classifies logical 404s.
// Connection failures are reported as a 404 page rather than an error since
// an unreachable host means the same thing to the pipeline as a missing page.
func FetchPage(ctx context.Context, client *resty.Client, url string) (Page, error) {
	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		if isConnectionRefused(err) {
			return Page{StatusCode: 404}, nil
		}
		return Page{}, err
	}

	page := Page{
		StatusCode:  res.StatusCode(),
		ContentType: parseContentType(res.Header().Get("Content-Type")),
	}
	if isTextContentType(page.ContentType) {
		page.Body = res.String()
	}
	if page.StatusCode == 200 &&
		strings.Contains(page.ContentType, "text/html") &&
		BodyLooksLikeNotFound(page.Body) {
		page.StatusCode = 404
		page.LogicalNotFound = true
	}
	return page, nil
}

func parseContentType(header string) string {
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	return strings.ToLower(strings.TrimSpace(header))
}

func isTextContentType(ct string) bool {
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	switch ct {
	case "application/xml", "application/json", "application/javascript", "application/xhtml+xml":
		return true
	}
	return false
}

func isConnectionRefused(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

func extensionForContentType(ct string) (string, bool) {
	switch ct {
	case "text/csv":
		return "csv", true
	case "application/json":
		return "json", true
	case "application/xml", "text/xml":
		return "xml", true
	case "text/html":
		return "html", true
	case "application/rdf+xml":
		return "rdf", true
	case "application/zip", "application/x-zip-compressed":
		return "zip", true
	case "application/vnd.ms-excel":
		return "xls", true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx", true
	case "text/plain":
		return "txt", true
	}
	return "", false
}

// InferFileType guesses a lowercase file extension from the URL path, falling
// back to the Content-Type header. Returns "unknown" when neither helps.
func InferFileType(url, contentType string) string {
	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext := strings.ToLower(path[i+1:])
		if ext != "" && len(ext) <= 5 && isAlphanumeric(ext) {
			return ext
		}
	}

	ct := parseContentType(contentType)
	if ct == "" {
		return "unknown"
	}
	if ext, ok := extensionForContentType(ct); ok {
		return ext
	}
	if i := strings.IndexByte(ct, '/'); i >= 0 {
		return ct[i+1:]
	}
	return "unknown"
}

func isAlphanumeric(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
