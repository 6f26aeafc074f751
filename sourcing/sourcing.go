// Package sourcing seeds the pipeline: it pulls candidate dataset URLs from
// the shared inventory spreadsheet, weeds out duplicates, probes each URL for
// availability, and creates a record per candidate.
package sourcing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"

	"datarescue-backend/config"
	"datarescue-backend/dupcheck"
	"datarescue-backend/lib/urlutil"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

var tracer = otel.Tracer("drp.sourcing")

// Sourcing is a global stage: it runs once over the inventory spreadsheet
// rather than once per record.
type Sourcing struct {
	store    *storage.Store
	reporter report.Reporter
	cfg      config.Config
	fetcher  *Fetcher
	checker  *dupcheck.Checker
}

func New(store *storage.Store, reporter report.Reporter, cfg config.Config) *Sourcing {
	return &Sourcing{
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		fetcher:  NewFetcher(cfg.SourcingSpreadsheetURL, cfg.SourcingURLColumn, cfg.SourcingFetchTimeout()),
		checker:  dupcheck.New(store, cfg.SourcingFetchTimeout()),
	}
}

type checkResult struct {
	drpid      int64
	candidate  Candidate
	statusCode int
	err        error
}

// Run processes the configured spreadsheet. A URL already in storage gets an
// error log and no row. Every other candidate gets a new record whose status
// reflects the outcome: "sourcing" for a reachable URL, "not_found" for a
// 404 (real or logical), "dupe_in_DL" when DataLumos already archives it, and
// "Error" when the availability probe itself failed.
func (s *Sourcing) Run(ctx context.Context, drpid int64) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	candidates, skipped, err := s.fetcher.Candidates(ctx, s.cfg.NumRows)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	var assignedIDs []int64
	var toCheck []checkResult
	counts := struct{ good, dupeStorage, dupeDL, notFound, errors int }{}

	for _, cand := range candidates {
		exists, err := s.checker.ExistsInStorage(ctx, cand.URL)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if exists {
			counts.dupeStorage++
			slog.ErrorContext(ctx, "duplicate source url already in storage, no row created",
				"url", cand.URL)
			continue
		}

		id, err := s.store.Create(ctx, cand.URL)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		assignedIDs = append(assignedIDs, id)

		if s.cfg.CheckDataLumos {
			archived, err := s.checker.ExistsInDataLumos(ctx, cand.URL)
			if err != nil {
				return fmt.Errorf("datalumos duplicate check: %w", err)
			}
			if archived {
				counts.dupeDL++
				if err := s.store.Update(ctx, id, map[string]string{
					"status": storage.StatusDupeInDL,
					"office": cand.Office,
					"agency": cand.Agency,
				}); err != nil {
					return fmt.Errorf("update record %d: %w", id, err)
				}
				continue
			}
		}

		toCheck = append(toCheck, checkResult{drpid: id, candidate: cand})
	}

	s.checkAvailability(ctx, toCheck)

	for _, res := range toCheck {
		fields := map[string]string{
			"office": res.candidate.Office,
			"agency": res.candidate.Agency,
		}
		switch {
		case res.err != nil:
			counts.errors++
			fields["status"] = storage.StatusError
			fields["errors"] = res.err.Error()
		case res.statusCode == 404:
			counts.notFound++
			fields["status"] = storage.StatusNotFound
		default:
			counts.good++
			fields["status"] = "sourcing"
		}
		if err := s.store.Update(ctx, res.drpid, fields); err != nil {
			return fmt.Errorf("update record %d: %w", res.drpid, err)
		}
	}

	slog.InfoContext(ctx, "sourcing complete",
		"good", counts.good,
		"dupe_in_storage", counts.dupeStorage,
		"dupe_in_dl", counts.dupeDL,
		"not_found", counts.notFound,
		"errors", counts.errors,
		"skipped_by_filter", skipped,
		"ids", idRange(assignedIDs),
	)
	return nil
}

// checkAvailability probes each candidate URL, fanning out over up to
// MaxWorkers goroutines. Results land back in the slice by index so no
// ordering is lost.
func (s *Sourcing) checkAvailability(ctx context.Context, toCheck []checkResult) {
	workers := s.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	client := urlutil.NewClient(s.cfg.SourcingFetchTimeout())

	wg := sync.WaitGroup{}
	sem := make(chan struct{}, workers)
	for i := range toCheck {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			page, err := urlutil.FetchPage(ctx, client, toCheck[i].candidate.URL)
			if err != nil {
				toCheck[i].err = err
				return
			}
			toCheck[i].statusCode = page.StatusCode
		}(i)
	}
	wg.Wait()
}

func idRange(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	min, max := ids[0], ids[0]
	for _, id := range ids[1:] {
		if id < min {
			min = id
		}
		if id > max {
			max = id
		}
	}
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}
