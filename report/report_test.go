package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"datarescue-backend/lib/testutil"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

func TestErrorMarksRecord(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "report-error")
	defer cleanup()
	ctx := context.Background()
	reporter := report.New(store)

	id, err := store.Create(ctx, "https://x.gov/data")
	require.NoError(t, err)

	reporter.Error(ctx, id, "download failed", report.ErrorOptions{})

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, storage.StatusError, rec.Status)
	require.Equal(t, "download failed", rec.Errors)

	// a second error appends rather than overwrites
	reporter.Error(ctx, id, "still failing", report.ErrorOptions{})
	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "download failed\nstill failing", rec.Errors)
}

func TestErrorSkipStore(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "report-skipstore")
	defer cleanup()
	ctx := context.Background()
	reporter := report.New(store)

	id, err := store.Create(ctx, "https://x.gov/data")
	require.NoError(t, err)

	reporter.Error(ctx, id, "lookup failed", report.ErrorOptions{SkipStore: true})

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, rec.Status)
	require.Empty(t, rec.Errors)
}

func TestErrorStatusOverride(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "report-status")
	defer cleanup()
	ctx := context.Background()
	reporter := report.New(store)

	id, err := store.Create(ctx, "https://x.gov/data")
	require.NoError(t, err)

	reporter.Error(ctx, id, "page gone", report.ErrorOptions{StatusValue: storage.StatusNotFound})

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, storage.StatusNotFound, rec.Status)
	require.Equal(t, "page gone", rec.Errors)
}

func TestErrorMissingRecordDoesNotPanic(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "report-missing")
	defer cleanup()
	reporter := report.New(store)

	// store failures while reporting are swallowed
	reporter.Error(context.Background(), 99, "boom", report.ErrorOptions{})
}

func TestWarning(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "report-warning")
	defer cleanup()
	ctx := context.Background()
	reporter := report.New(store)

	id, err := store.Create(ctx, "https://x.gov/data")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, id, map[string]string{"status": "sourcing"}))

	reporter.Warning(ctx, id, "metadata incomplete", true)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "metadata incomplete", rec.Warnings)
	// warnings never change status or block eligibility
	require.Equal(t, "sourcing", rec.Status)
	require.Empty(t, rec.Errors)

	reporter.Warning(ctx, id, "log only", false)
	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "metadata incomplete", rec.Warnings)
}

func TestCrash(t *testing.T) {
	err := report.Crash("database unavailable")
	require.Error(t, err)
	require.Contains(t, err.Error(), "database unavailable")
}
