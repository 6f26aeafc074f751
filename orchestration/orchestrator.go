// Package orchestration dispatches pipeline stages: it resolves a stage name
// through the registry, lists the eligible records, and runs the stage once
// per record (or once globally for stages with no prerequisite), isolating
// per-record failures so one broken dataset never stops the batch.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"datarescue-backend/storage"
)

var tracer = otel.Tracer("drp.orchestration")

// UnknownModuleError reports a stage name with no registry entry. The message
// enumerates the valid names so an operator can correct the invocation.
type UnknownModuleError struct {
	Name string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("unknown module %q, valid modules: %s",
		e.Name, strings.Join(Names(), ", "))
}

// Orchestrator runs stage modules over the record store.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run executes the named stage.
//
// A stage with no prerequisite runs exactly once with GlobalRun, and its
// error propagates: a global stage has no next record to skip to, so a
// failure there is a configuration or connectivity problem worth surfacing
// immediately.
//
// A stage with a prerequisite runs once per eligible record in ascending
// DRPID order. A failing record gets the failure appended to its errors
// field, which drops it out of eligibility, and the batch continues with the
// next record. The stop file and ctx are checked between records so long
// batches can be interrupted without corrupting an in-flight record.
func (o *Orchestrator) Run(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("module", name))

	entry, ok := Lookup(name)
	if !ok {
		err := &UnknownModuleError{Name: name}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cfg := o.deps.Config
	slog.InfoContext(ctx, "running module", "module", name, "num_rows", cfg.NumRows)
	module := entry.New(o.deps)

	if entry.Prereq == "" {
		if err := module.Run(ctx, GlobalRun); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("module %s: %w", name, err)
		}
		slog.InfoContext(ctx, "finished module", "module", name)
		return nil
	}

	records, err := o.deps.Store.ListEligible(ctx, entry.Prereq, storage.ListOptions{
		Limit:    cfg.NumRows,
		StartRow: cfg.StartRow,
		MinDRPID: cfg.MinDRPID,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("module %s: %w", name, err)
	}
	slog.InfoContext(ctx, "eligible records", "module", name, "count", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.stopRequested() {
			slog.InfoContext(ctx, "stop file present, exiting batch",
				"module", name, "stop_file", cfg.StopFile)
			break
		}

		if err := module.Run(ctx, rec.DRPID); err != nil {
			// record the failure without touching status, so the record
			// stays at its prerequisite stage for a retry after the
			// operator clears the errors field
			if appendErr := o.deps.Store.AppendToField(
				ctx, rec.DRPID, "errors", err.Error(),
			); appendErr != nil {
				slog.ErrorContext(ctx, "failed to record module error",
					"module", name, "drpid", rec.DRPID, "err", appendErr)
			}
			slog.WarnContext(ctx, "module failed on record, continuing",
				"module", name, "drpid", rec.DRPID, "err", err)
			continue
		}
	}

	slog.InfoContext(ctx, "finished module", "module", name)
	return nil
}

func (o *Orchestrator) stopRequested() bool {
	if o.deps.Config.StopFile == "" {
		return false
	}
	_, err := os.Stat(o.deps.Config.StopFile)
	return err == nil
}
