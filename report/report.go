// Package report centralizes how stage modules surface problems, so the
// orchestrator's skip/continue behavior is uniform no matter which stage
// raised:
//
//   - a crash is fatal and stops the entire run
//   - an error aborts the current project; the run continues with the next
//   - a warning is logged and recorded; processing continues
package report

import (
	"context"
	"fmt"
	"log/slog"

	"datarescue-backend/storage"
)

// Reporter records errors and warnings against the record store.
type Reporter struct {
	store *storage.Store
}

func New(store *storage.Store) Reporter {
	return Reporter{store: store}
}

// Crash logs msg at error level and returns a terminal error. Callers must
// propagate it all the way out; the CLI exits non-zero on it. Use for
// unrecoverable failures (storage unavailable, config missing) where there
// is no specific record to annotate.
func Crash(msg string) error {
	slog.Error(msg)
	return fmt.Errorf("fatal: %s", msg)
}

// ErrorOptions tunes Error. The zero value updates the store and marks the
// record with storage.StatusError.
type ErrorOptions struct {
	// SkipStore leaves the record untouched. Use when the record may not
	// exist (e.g. a lookup by DRPID already failed), so a secondary
	// not-found failure cannot mask the original error.
	SkipStore bool
	// StatusValue overrides the status marker written to the record.
	StatusValue string
}

// Error records a per-project error: logs it and, unless opts.SkipStore is
// set, marks the record's status and appends the message to its errors
// field. A record with a non-empty errors field drops out of eligibility for
// later stages until an operator intervenes.
//
// Store failures while recording are logged and swallowed: they must never
// replace or mask the error being reported.
func (r Reporter) Error(ctx context.Context, drpid int64, msg string, opts ErrorOptions) {
	slog.ErrorContext(ctx, msg, "drpid", drpid)

	if opts.SkipStore {
		return
	}
	status := opts.StatusValue
	if status == "" {
		status = storage.StatusError
	}

	if err := r.store.Update(ctx, drpid, map[string]string{"status": status}); err != nil {
		slog.ErrorContext(ctx, "failed to set error status", "drpid", drpid, "err", err)
		return
	}
	if err := r.store.AppendToField(ctx, drpid, "errors", msg); err != nil {
		slog.ErrorContext(ctx, "failed to append to errors", "drpid", drpid, "err", err)
	}
}

// Warning records a non-fatal anomaly: logs it and appends the message to
// the record's warnings field. Never changes status and never blocks
// eligibility.
func (r Reporter) Warning(ctx context.Context, drpid int64, msg string, updateStore bool) {
	slog.WarnContext(ctx, msg, "drpid", drpid)

	if !updateStore {
		return
	}
	if err := r.store.AppendToField(ctx, drpid, "warnings", msg); err != nil {
		slog.ErrorContext(ctx, "failed to append to warnings", "drpid", drpid, "err", err)
	}
}
