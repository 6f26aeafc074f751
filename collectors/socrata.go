// Package collectors implements the "collectors" stage: for each sourced
// record it archives the dataset page, downloads the data itself, and
// harvests metadata into the record. Socrata portals (data.cdc.gov and
// friends) expose a views API that serves both the metadata and a full CSV
// export; catalog.data.gov pages get their resource list surveyed instead.
package collectors

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"

	"datarescue-backend/config"
	"datarescue-backend/lib/telemetry"
	"datarescue-backend/lib/urlutil"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

var tracer = otel.Tracer("drp.collectors")

// socrata dataset ids are two groups of four lowercase alphanumerics
var datasetIDPattern = regexp.MustCompile(`([a-z0-9]{4}-[a-z0-9]{4})`)

// SocrataCollector collects one record per Run call.
type SocrataCollector struct {
	store    *storage.Store
	reporter report.Reporter
	cfg      config.Config
	client   *resty.Client
	catalog  *CatalogSurveyor
}

func NewSocrata(store *storage.Store, reporter report.Reporter, cfg config.Config) *SocrataCollector {
	client := resty.New().SetTimeout(cfg.DownloadTimeout())
	if cfg.SocrataAppToken != "" {
		client.SetHeader("X-App-Token", cfg.SocrataAppToken)
	}
	telemetry.InstrumentResty(client, "drp.collectors.socrata")

	return &SocrataCollector{
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		client:   client,
		catalog:  NewCatalogSurveyor(cfg.DownloadTimeout()),
	}
}

// socrataView is the subset of the views API response the pipeline keeps.
type socrataView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Attribution string   `json:"attribution"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Columns     []struct {
		DataTypeName string `json:"dataTypeName"`
	} `json:"columns"`
}

// Run collects the record's source URL. Failures that leave nothing worth
// retrying automatically (missing record, bad URL) are reported and swallowed
// so the batch moves on; transient failures return an error and leave the
// record at its prerequisite status for a retry.
func (c *SocrataCollector) Run(ctx context.Context, drpid int64) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	rec, err := c.store.Get(ctx, drpid)
	if err != nil {
		c.reporter.Error(ctx, drpid, fmt.Sprintf("record not found: %v", err),
			report.ErrorOptions{SkipStore: true})
		return nil
	}
	if !urlutil.IsValidURL(rec.SourceURL) {
		c.reporter.Error(ctx, drpid, fmt.Sprintf("invalid source url: %q", rec.SourceURL),
			report.ErrorOptions{})
		return nil
	}

	sourceURL, err := url.Parse(rec.SourceURL)
	if err != nil {
		c.reporter.Error(ctx, drpid, fmt.Sprintf("unparseable source url: %v", err),
			report.ErrorOptions{})
		return nil
	}

	// catalog.data.gov pages carry a list of resources instead of a single
	// dataset; survey them into status_notes and finish
	if sourceURL.Host == "catalog.data.gov" {
		return c.collectCatalog(ctx, drpid, rec.SourceURL)
	}

	datasetID := datasetIDPattern.FindString(sourceURL.Path)
	if datasetID == "" {
		c.reporter.Error(ctx, drpid,
			fmt.Sprintf("no socrata dataset id in url: %s", rec.SourceURL),
			report.ErrorOptions{})
		return nil
	}

	folder, err := createOutputFolder(c.cfg.BaseOutputDir, drpid)
	if err != nil {
		return err
	}
	fields := map[string]string{"folder_path": folder}
	var notes []string

	view, err := c.fetchView(ctx, sourceURL.Host, datasetID)
	if err != nil {
		return fmt.Errorf("fetch dataset metadata: %w", err)
	}
	if view.Name != "" {
		fields["title"] = view.Name
	}
	if view.Description != "" {
		fields["summary"] = view.Description
	}
	if view.Attribution != "" {
		fields["agency"] = view.Attribution
	}
	if len(view.Tags) > 0 {
		fields["keywords"] = strings.Join(view.Tags, ", ")
	}
	if types := columnDataTypes(view); types != "" {
		fields["data_types"] = types
	}
	notes = append(notes, "Metadata harvested")

	if err := c.archivePage(ctx, rec.SourceURL, folder, view.Name); err != nil {
		c.reporter.Warning(ctx, drpid, fmt.Sprintf("failed to archive page: %v", err), true)
		notes = append(notes, "Page archive skipped")
	} else {
		notes = append(notes, "Page archived")
	}

	datasetPath, size, err := c.downloadDataset(ctx, sourceURL.Host, datasetID, folder, view.Name)
	if err != nil {
		return fmt.Errorf("download dataset: %w", err)
	}
	notes = append(notes, "Dataset downloaded")

	fields["file_size"] = fmt.Sprintf("%d", size)
	fields["download_date"] = time.Now().Format("2006-01-02")
	fields["extensions"] = strings.TrimPrefix(filepath.Ext(datasetPath), ".")
	fields["collection_notes"] = strings.Join(notes, "; ")
	fields["status"] = "collectors"

	return c.store.Update(ctx, drpid, fields)
}

func (c *SocrataCollector) fetchView(ctx context.Context, host, datasetID string) (socrataView, error) {
	var view socrataView
	res, err := c.client.R().
		SetContext(ctx).
		SetResult(&view).
		Get(fmt.Sprintf("https://%s/api/views/%s.json", host, datasetID))
	if err != nil {
		return socrataView{}, err
	}
	if res.IsError() {
		return socrataView{}, fmt.Errorf("views api returned http %d", res.StatusCode())
	}
	return view, nil
}

// archivePage saves the rendered dataset page HTML next to the data, named
// after the page title like the rest of the archive.
func (c *SocrataCollector) archivePage(ctx context.Context, pageURL, folder, title string) error {
	page, err := urlutil.FetchPage(ctx, urlutil.NewClient(c.cfg.DownloadTimeout()), pageURL)
	if err != nil {
		return err
	}
	if page.StatusCode != 200 {
		return fmt.Errorf("page returned http %d", page.StatusCode)
	}
	name := sanitizeFilename(title, 100) + ".html"
	return os.WriteFile(filepath.Join(folder, name), []byte(page.Body), 0o644)
}

func (c *SocrataCollector) downloadDataset(ctx context.Context, host, datasetID, folder, title string) (string, int64, error) {
	name := sanitizeFilename(title, 100) + ".csv"
	path := filepath.Join(folder, name)

	exportURL := fmt.Sprintf("https://%s/api/views/%s/rows.csv?accessType=DOWNLOAD", host, datasetID)
	res, err := c.client.R().
		SetContext(ctx).
		SetOutput(path).
		Get(exportURL)
	if err != nil {
		return "", 0, err
	}
	if res.IsError() {
		return "", 0, fmt.Errorf("csv export returned http %d", res.StatusCode())
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat downloaded dataset: %w", err)
	}
	return path, info.Size(), nil
}

func (c *SocrataCollector) collectCatalog(ctx context.Context, drpid int64, pageURL string) error {
	entries, err := c.catalog.Survey(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("survey catalog page: %w", err)
	}
	if !entries.HasReachable() {
		c.reporter.Error(ctx, drpid, "all download links returned 404", report.ErrorOptions{})
		return nil
	}
	// no folder_path is produced, so the record does not advance to
	// "collectors"; the resource survey lands in status_notes for a human
	return c.store.Update(ctx, drpid, map[string]string{
		"status_notes": entries.StatusNotes(),
	})
}

func columnDataTypes(view socrataView) string {
	seen := map[string]bool{}
	var types []string
	for _, col := range view.Columns {
		if col.DataTypeName == "" || seen[col.DataTypeName] {
			continue
		}
		seen[col.DataTypeName] = true
		types = append(types, col.DataTypeName)
	}
	return strings.Join(types, ", ")
}
