package dupcheck

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

const (
	searchBaseURL = "https://www.datalumos.org/datalumos/search/studies"

	// similarity threshold for flagging near-miss distribution URLs
	nearMatchThreshold = 0.95
)

// ProjectURL returns the public view URL for a DataLumos project id.
func ProjectURL(projectID int64) string {
	return fmt.Sprintf("https://www.datalumos.org/datalumos/project/%d/version/V1/view", projectID)
}

// The search page embeds its results as JSON inside the rendered HTML, so
// numFound and the study ids are pulled out with regexes rather than a JSON
// decode of the whole page.
var (
	numFoundPattern = regexp.MustCompile(`"numFound"\s*:\s*(\d+)`)
	studyIDPattern  = regexp.MustCompile(`"ID"\s*:\s*(\d+)`)
)

// SearchDataLumos searches DataLumos for sourceURL and returns the matching
// study ids. A Cloudflare challenge or missing result JSON returns nil with
// no error, after logging a warning: the caller treats "could not check" as
// "not a duplicate" so the pipeline keeps moving.
func (c *Checker) SearchDataLumos(ctx context.Context, sourceURL string) ([]int64, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start":   "0",
			"ARCHIVE": "datalumos",
			"sort":    "score desc,DATEUPDATED desc",
			"rows":    "25",
			"q":       sourceURL,
		}).
		Get(c.searchBase)
	if err != nil {
		return nil, fmt.Errorf("datalumos search: %w", err)
	}

	body := res.String()
	match := numFoundPattern.FindStringSubmatch(body)
	if match == nil {
		if strings.Contains(body, "Just a moment") {
			slog.WarnContext(ctx, "cloudflare challenge blocked datalumos search", "url", sourceURL)
		} else {
			slog.WarnContext(ctx, "datalumos search response missing numFound", "url", sourceURL)
		}
		return nil, nil
	}
	numFound, _ := strconv.Atoi(match[1])
	if numFound > 1 {
		slog.WarnContext(ctx, "datalumos returned multiple matches, expected at most one",
			"url", sourceURL, "count", numFound)
	}
	if numFound == 0 {
		return nil, nil
	}

	var ids []int64
	for _, m := range studyIDPattern.FindAllStringSubmatch(body, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExistsInDataLumos reports whether some DataLumos study lists sourceURL as
// its Original Distribution URL. Search hits whose distribution URL differs
// are logged, with near-identical URLs (trailing slash, scheme changes)
// called out separately since they usually mean the same dataset.
func (c *Checker) ExistsInDataLumos(ctx context.Context, sourceURL string) (bool, error) {
	ids, err := c.SearchDataLumos(ctx, sourceURL)
	if err != nil {
		return false, err
	}

	for _, id := range ids {
		projectURL := ProjectURL(id)
		res, err := c.client.R().SetContext(ctx).Get(projectURL)
		if err != nil {
			slog.WarnContext(ctx, "failed to load datalumos result page",
				"page", projectURL, "err", err)
			continue
		}
		body := res.String()
		if strings.Contains(body, "Just a moment") {
			slog.WarnContext(ctx, "cloudflare challenge on datalumos result page", "page", projectURL)
			continue
		}

		distURL, ok := extractDistributionURL(body)
		if !ok {
			continue
		}
		if distURL == sourceURL {
			return true, nil
		}
		if matchr.JaroWinkler(distURL, sourceURL, false) >= nearMatchThreshold {
			slog.WarnContext(ctx, "datalumos study has near-identical distribution url",
				"page", projectURL, "distribution_url", distURL, "source_url", sourceURL)
		}
	}
	return false, nil
}

// extractDistributionURL finds the anchor following the "Original
// Distribution URL" label on a study page.
func extractDistributionURL(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	// document order is depth-first, so later matches are deeper in the
	// tree; keep the deepest element that carries both the label and a link
	var found string
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		if !strings.Contains(sel.Text(), "Original Distribution URL") {
			return
		}
		href := firstHTTPAnchor(sel)
		if href == "" {
			href = firstHTTPAnchor(sel.NextAll())
		}
		if href != "" {
			found = href
		}
	})
	return found, found != ""
}

func firstHTTPAnchor(sel *goquery.Selection) string {
	var href string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			href = text
			return false
		}
		return true
	})
	return href
}
