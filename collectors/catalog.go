package collectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"datarescue-backend/lib/telemetry"
	"datarescue-backend/lib/urlutil"
)

// CatalogSurveyor inspects a catalog.data.gov dataset page: it extracts the
// "Downloads & Resources" links, follows catalog resource pages to the real
// download URL, and probes each for availability.
type CatalogSurveyor struct {
	client *resty.Client
}

func NewCatalogSurveyor(timeout time.Duration) *CatalogSurveyor {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(urlutil.BrowserHeaders)
	telemetry.InstrumentResty(client, "drp.collectors.catalog")
	return &CatalogSurveyor{client: client}
}

// Resource is the probe outcome for one download link.
type Resource struct {
	Title string
	// Result is the inferred file type ("csv", "zip", ...) or "404"
	Result string
	// URL is the resolved download URL, empty for unreachable resources
	URL string
}

// Resources is a surveyed resource list.
type Resources []Resource

// HasReachable reports whether at least one resource answered.
func (rs Resources) HasReachable() bool {
	for _, r := range rs {
		if r.Result != "404" {
			return true
		}
	}
	return false
}

// StatusNotes renders the survey for the record's status_notes field, one
// line per resource.
func (rs Resources) StatusNotes() string {
	var b strings.Builder
	for _, r := range rs {
		b.WriteString(fmt.Sprintf("\n  %s -> %s", r.Title, r.Result))
		if r.URL != "" {
			b.WriteString(" " + r.URL)
		}
	}
	return b.String()
}

// Survey fetches the catalog page and probes every download resource.
func (s *CatalogSurveyor) Survey(ctx context.Context, pageURL string) (Resources, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	links := extractDownloadLinks(doc)
	if len(links) == 0 {
		return nil, fmt.Errorf("no Downloads & Resources section on %s", pageURL)
	}

	hrefs := map[string]bool{}
	for _, l := range links {
		hrefs[l.href] = true
	}

	var out Resources
	for _, link := range links {
		title := link.text
		if title == "" {
			title = "(no title)"
		}
		actualURL := link.href
		dataFormat := ""

		if strings.HasPrefix(actualURL, "https://catalog.data.gov") {
			resolved, format, err := s.resolveResourcePage(ctx, actualURL)
			if err != nil {
				out = append(out, Resource{Title: title, Result: "404"})
				continue
			}
			// the resolved URL may just duplicate another direct link
			if hrefs[resolved] {
				continue
			}
			actualURL, dataFormat = resolved, format
		}

		res, err := s.client.R().SetContext(ctx).Head(actualURL)
		if err != nil || res.StatusCode() == 404 {
			out = append(out, Resource{Title: title, Result: "404"})
			continue
		}
		fileType := dataFormat
		if fileType == "" {
			fileType = urlutil.InferFileType(actualURL, res.Header().Get("Content-Type"))
		}
		out = append(out, Resource{Title: title, Result: fileType, URL: actualURL})
	}
	return out, nil
}

type downloadLink struct {
	href string
	text string
}

// extractDownloadLinks finds the "Downloads & Resources" heading, then pulls
// (href, text) pairs from the anchor of each list item under it, deduped by
// href with the first occurrence winning.
func extractDownloadLinks(doc *goquery.Document) []downloadLink {
	var links []downloadLink
	seen := map[string]bool{}

	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		if !strings.Contains(h3.Text(), "Downloads & Resources") {
			return
		}
		h3.NextAllFiltered("ul").First().Find("li a").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" || seen[href] {
				return
			}
			seen[href] = true
			links = append(links, downloadLink{
				href: href,
				text: strings.TrimSpace(a.Text()),
			})
		})
	})
	return links
}

// resolveResourcePage loads a catalog.data.gov resource page and follows its
// #res_url anchor to the actual download URL plus its declared data format.
func (s *CatalogSurveyor) resolveResourcePage(ctx context.Context, resourceURL string) (string, string, error) {
	doc, err := s.fetchDocument(ctx, resourceURL)
	if err != nil {
		return "", "", err
	}

	anchor := doc.Find("a#res_url").First()
	href, ok := anchor.Attr("href")
	if !ok || href == "" {
		return "", "", fmt.Errorf("no #res_url link on %s", resourceURL)
	}
	format := strings.ToLower(strings.TrimSpace(anchor.AttrOr("data-format", "")))
	return href, format, nil
}

func (s *CatalogSurveyor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	res, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("http %d from %s", res.StatusCode(), pageURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(res.String()))
}
