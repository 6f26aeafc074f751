package orchestration_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"datarescue-backend/config"
	"datarescue-backend/lib/testutil"
	"datarescue-backend/orchestration"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

// fakeStage records the drpids it was invoked with and fails on demand.
type fakeStage struct {
	calls  []int64
	failOn map[int64]error
}

func (f *fakeStage) Run(_ context.Context, drpid int64) error {
	f.calls = append(f.calls, drpid)
	if err, ok := f.failOn[drpid]; ok {
		return err
	}
	return nil
}

func setup(t *testing.T) (*storage.Store, orchestration.Deps) {
	store, cleanup := testutil.SetupStorage(t, "orchestration")
	t.Cleanup(cleanup)
	deps := orchestration.Deps{
		Store:    store,
		Reporter: report.New(store),
		Config:   config.Default(),
	}
	return store, deps
}

func seedRecords(t *testing.T, store *storage.Store, status string, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := store.Create(ctx, fmt.Sprintf("https://x.gov/%s/%d", status, i))
		require.NoError(t, err)
		require.NoError(t, store.Update(ctx, id, map[string]string{"status": status}))
		ids = append(ids, id)
	}
	return ids
}

func TestUnknownModule(t *testing.T) {
	_, deps := setup(t)

	err := orchestration.New(deps).Run(context.Background(), "no_such_stage")

	var unknownErr *orchestration.UnknownModuleError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "no_such_stage", unknownErr.Name)
	for _, name := range orchestration.Names() {
		require.Contains(t, err.Error(), name)
	}
}

func TestGlobalStage(t *testing.T) {
	_, deps := setup(t)

	stage := &fakeStage{}
	orchestration.Register(orchestration.Entry{
		Name: "test_global",
		New:  func(orchestration.Deps) orchestration.Module { return stage },
	})

	require.NoError(t, orchestration.New(deps).Run(context.Background(), "test_global"))
	require.Equal(t, []int64{orchestration.GlobalRun}, stage.calls)
}

func TestGlobalStageErrorPropagates(t *testing.T) {
	_, deps := setup(t)

	boom := errors.New("no spreadsheet configured")
	stage := &fakeStage{failOn: map[int64]error{orchestration.GlobalRun: boom}}
	orchestration.Register(orchestration.Entry{
		Name: "test_global_fail",
		New:  func(orchestration.Deps) orchestration.Module { return stage },
	})

	err := orchestration.New(deps).Run(context.Background(), "test_global_fail")
	require.ErrorIs(t, err, boom)
}

func TestPerRecordBatchIsolation(t *testing.T) {
	store, deps := setup(t)
	ctx := context.Background()

	ids := seedRecords(t, store, "sourcing", 3)

	boom := errors.New("download failed")
	stage := &fakeStage{failOn: map[int64]error{ids[1]: boom}}
	orchestration.Register(orchestration.Entry{
		Name:   "test_batch",
		Prereq: "sourcing",
		New: func(d orchestration.Deps) orchestration.Module {
			// stage advances successes itself, as real stages do
			return &advancingStage{inner: stage, store: d.Store, status: "test_batch"}
		},
	})

	require.NoError(t, orchestration.New(deps).Run(ctx, "test_batch"))
	require.Equal(t, ids, stage.calls)

	// successes advanced
	for _, id := range []int64{ids[0], ids[2]} {
		rec, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "test_batch", rec.Status)
		require.Empty(t, rec.Errors)
	}

	// the failure kept its status, so a retry is possible once the errors
	// field is cleared, but it is no longer eligible as-is
	rec, err := store.Get(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, "sourcing", rec.Status)
	require.Equal(t, boom.Error(), rec.Errors)

	stage.calls = nil
	require.NoError(t, orchestration.New(deps).Run(ctx, "test_batch"))
	require.Empty(t, stage.calls)
}

// advancingStage wraps a fakeStage and moves successful records to status.
type advancingStage struct {
	inner  *fakeStage
	store  *storage.Store
	status string
}

func (s *advancingStage) Run(ctx context.Context, drpid int64) error {
	if err := s.inner.Run(ctx, drpid); err != nil {
		return err
	}
	return s.store.Update(ctx, drpid, map[string]string{"status": s.status})
}

func TestPerRecordLimits(t *testing.T) {
	store, deps := setup(t)
	seedRecords(t, store, "limit_prereq", 5)
	deps.Config.NumRows = 2

	stage := &fakeStage{}
	orchestration.Register(orchestration.Entry{
		Name:   "test_limit",
		Prereq: "limit_prereq",
		New:    func(orchestration.Deps) orchestration.Module { return stage },
	})

	require.NoError(t, orchestration.New(deps).Run(context.Background(), "test_limit"))
	require.Len(t, stage.calls, 2)
}

func TestPerRecordContextCancel(t *testing.T) {
	store, deps := setup(t)
	seedRecords(t, store, "cancel_prereq", 3)

	ctx, cancel := context.WithCancel(context.Background())
	stage := &fakeStage{}
	orchestration.Register(orchestration.Entry{
		Name:   "test_cancel",
		Prereq: "cancel_prereq",
		New: func(orchestration.Deps) orchestration.Module {
			return &cancelAfterFirst{inner: stage, cancel: cancel}
		},
	})

	err := orchestration.New(deps).Run(ctx, "test_cancel")
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, stage.calls, 1)
}

type cancelAfterFirst struct {
	inner  *fakeStage
	cancel context.CancelFunc
}

func (s *cancelAfterFirst) Run(ctx context.Context, drpid int64) error {
	err := s.inner.Run(ctx, drpid)
	s.cancel()
	return err
}
