// Package upload implements the "upload" stage: collected records are
// deposited into the DataLumos archive, and their source URLs nominated to
// the U.S. Government Web & Data Archive.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"

	"datarescue-backend/config"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

var tracer = otel.Tracer("drp.upload")

// Uploader deposits one collected record per Run call.
type Uploader struct {
	store     *storage.Store
	reporter  report.Reporter
	cfg       config.Config
	client    DepositClient
	nominator *Nominator
}

func New(store *storage.Store, reporter report.Reporter, cfg config.Config, client DepositClient) *Uploader {
	return &Uploader{
		store:     store,
		reporter:  reporter,
		cfg:       cfg,
		client:    client,
		nominator: NewNominator(cfg),
	}
}

// Run deposits the record into DataLumos, stores the assigned datalumos_id,
// and advances status to "upload". Validation failures are reported against
// the record and swallowed; deposit failures are reported and returned.
func (u *Uploader) Run(ctx context.Context, drpid int64) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	slog.InfoContext(ctx, "starting upload", "drpid", drpid)

	rec, err := u.store.Get(ctx, drpid)
	if err != nil {
		u.reporter.Error(ctx, drpid, fmt.Sprintf("record not found: %v", err),
			report.ErrorOptions{SkipStore: true})
		return nil
	}

	if problems := validateForDeposit(rec); len(problems) > 0 {
		for _, p := range problems {
			u.reporter.Error(ctx, drpid, p, report.ErrorOptions{})
		}
		return nil
	}

	key, err := random.String(16)
	if err != nil {
		return fmt.Errorf("generate deposit key: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.UploadTimeout())
	defer cancel()

	datalumosID, err := u.client.CreateDeposit(ctx, Deposit{
		IdempotencyKey: key,
		Title:          rec.Title,
		Summary:        rec.Summary,
		Agency:         rec.Agency,
		Keywords:       rec.Keywords,
		TimeStart:      rec.TimeStart,
		TimeEnd:        rec.TimeEnd,
		SourceURL:      rec.SourceURL,
		FolderPath:     rec.FolderPath,
	})
	if err != nil {
		u.reporter.Error(ctx, drpid, fmt.Sprintf("upload failed: %v", err), report.ErrorOptions{})
		return fmt.Errorf("upload failed: %w", err)
	}

	if err := u.store.Update(ctx, drpid, map[string]string{
		"datalumos_id": datalumosID,
		"status":       "upload",
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "upload completed", "drpid", drpid, "datalumos_id", datalumosID)

	// nomination is best effort; a full archive copy already exists
	if err := u.nominator.Nominate(ctx, rec.SourceURL); err != nil {
		u.reporter.Warning(ctx, drpid, fmt.Sprintf("gwda nomination failed: %v", err), true)
	}
	return nil
}

// validateForDeposit checks the record carries everything the archive's
// deposit form requires.
func validateForDeposit(rec storage.Record) []string {
	var problems []string
	if rec.Title == "" {
		problems = append(problems, "missing required field: title")
	}
	if rec.Summary == "" {
		problems = append(problems, "missing required field: summary")
	}
	if rec.FolderPath != "" {
		info, err := os.Stat(rec.FolderPath)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("folder path does not exist: %s", rec.FolderPath))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("folder path is not a directory: %s", rec.FolderPath))
		}
	}
	return problems
}
