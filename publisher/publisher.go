// Package publisher implements the "publisher" stage: uploaded deposits are
// published in DataLumos, the public URL is recorded, and the shared
// inventory spreadsheet is updated.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"datarescue-backend/config"
	"datarescue-backend/lib/urlutil"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

var tracer = otel.Tracer("drp.publisher")

// PublishedURL returns the public view URL a published workspace ends up at.
func PublishedURL(workspaceID string) string {
	return fmt.Sprintf("https://www.datalumos.org/datalumos/project/%s/version/V1/view", workspaceID)
}

// Publisher publishes one uploaded record per Run call.
type Publisher struct {
	store    *storage.Store
	reporter report.Reporter
	cfg      config.Config
	client   PublishClient
	sheets   SheetUpdater
}

func New(store *storage.Store, reporter report.Reporter, cfg config.Config, client PublishClient, sheets SheetUpdater) *Publisher {
	return &Publisher{
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		client:   client,
		sheets:   sheets,
	}
}

// Run publishes the record's DataLumos deposit and records the public URL.
// Records that never made it to a deposit ("not_found", "no_links") only get
// their spreadsheet row annotated.
func (p *Publisher) Run(ctx context.Context, drpid int64) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	slog.InfoContext(ctx, "starting publish", "drpid", drpid)

	rec, err := p.store.Get(ctx, drpid)
	if err != nil {
		p.reporter.Error(ctx, drpid, fmt.Sprintf("record not found: %v", err),
			report.ErrorOptions{SkipStore: true})
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(rec.Status)) {
	case storage.StatusNotFound:
		return p.updateSheetUnavailable(ctx, drpid, rec, "Not found", "updated_not_found")
	case "no_links":
		return p.updateSheetUnavailable(ctx, drpid, rec, "No live links", "updated_no_links")
	}

	workspaceID := strings.TrimSpace(rec.DataLumosID)
	if workspaceID == "" {
		p.reporter.Error(ctx, drpid,
			"missing datalumos_id; record must be uploaded before publish",
			report.ErrorOptions{})
		return nil
	}

	if err := p.client.Publish(ctx, workspaceID); err != nil {
		p.reporter.Error(ctx, drpid, fmt.Sprintf("publish failed: %v", err), report.ErrorOptions{})
		return fmt.Errorf("publish failed: %w", err)
	}

	publishedURL := PublishedURL(workspaceID)
	if p.cfg.VerifyPublished {
		p.verifyReachable(ctx, drpid, publishedURL)
	}

	if err := p.store.Update(ctx, drpid, map[string]string{
		"published_url": publishedURL,
		"status":        "publisher",
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "publish completed", "drpid", drpid, "published_url", publishedURL)

	if p.sheets == nil {
		return nil
	}
	if err := p.sheets.UpdatePublished(ctx, rec, publishedURL); err != nil {
		p.reporter.Warning(ctx, drpid, fmt.Sprintf("inventory sheet update failed: %v", err), true)
		return nil
	}
	return p.store.Update(ctx, drpid, map[string]string{"status": "updated_inventory"})
}

// verifyReachable probes the freshly published URL; the archive occasionally
// lags a few seconds, so an unreachable page is only a warning.
func (p *Publisher) verifyReachable(ctx context.Context, drpid int64, publishedURL string) {
	client := urlutil.NewClient(p.cfg.UploadTimeout())
	page, err := urlutil.FetchPage(ctx, client, publishedURL)
	if err != nil {
		p.reporter.Warning(ctx, drpid,
			fmt.Sprintf("could not verify published url %s: %v", publishedURL, err), true)
		return
	}
	if page.StatusCode != 200 {
		p.reporter.Warning(ctx, drpid,
			fmt.Sprintf("published url %s returned http %d", publishedURL, page.StatusCode), true)
	}
}

func (p *Publisher) updateSheetUnavailable(ctx context.Context, drpid int64, rec storage.Record, note, successStatus string) error {
	if p.sheets == nil {
		return nil
	}
	if err := p.sheets.UpdateUnavailable(ctx, rec, note); err != nil {
		p.reporter.Warning(ctx, drpid, fmt.Sprintf("inventory sheet update failed: %v", err), true)
		return nil
	}
	return p.store.Update(ctx, drpid, map[string]string{"status": successStatus})
}
