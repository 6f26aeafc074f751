package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"datarescue-backend/config"
	"datarescue-backend/lib/testutil"
	"datarescue-backend/report"
	"datarescue-backend/storage"
)

type fakePublishClient struct {
	published []string
	err       error
}

func (f *fakePublishClient) Publish(_ context.Context, workspaceID string) error {
	f.published = append(f.published, workspaceID)
	return f.err
}

type fakeSheetUpdater struct {
	publishedURLs []string
	notes         []string
	err           error
}

func (f *fakeSheetUpdater) UpdatePublished(_ context.Context, _ storage.Record, publishedURL string) error {
	f.publishedURLs = append(f.publishedURLs, publishedURL)
	return f.err
}

func (f *fakeSheetUpdater) UpdateUnavailable(_ context.Context, _ storage.Record, note string) error {
	f.notes = append(f.notes, note)
	return f.err
}

func setup(t *testing.T) (*storage.Store, *fakePublishClient, *fakeSheetUpdater, *Publisher) {
	store, cleanup := testutil.SetupStorage(t, "publisher")
	t.Cleanup(cleanup)

	client := &fakePublishClient{}
	sheets := &fakeSheetUpdater{}
	p := New(store, report.New(store), config.Default(), client, sheets)
	return store, client, sheets, p
}

func seedUploaded(t *testing.T, store *storage.Store, workspaceID string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := store.Create(ctx, "https://data.cdc.gov/d/abcd-1234")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, id, map[string]string{
		"status":       "upload",
		"datalumos_id": workspaceID,
	}))
	return id
}

func TestRunPublishes(t *testing.T) {
	store, client, sheets, p := setup(t)
	ctx := context.Background()
	id := seedUploaded(t, store, "220652")

	require.NoError(t, p.Run(ctx, id))
	require.Equal(t, []string{"220652"}, client.published)

	wantURL := "https://www.datalumos.org/datalumos/project/220652/version/V1/view"
	require.Equal(t, []string{wantURL}, sheets.publishedURLs)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, wantURL, rec.PublishedURL)
	require.Equal(t, "updated_inventory", rec.Status)
}

func TestRunPublishFailure(t *testing.T) {
	store, client, _, p := setup(t)
	ctx := context.Background()
	id := seedUploaded(t, store, "220652")

	client.err = errors.New("workspace returned an error banner")

	err := p.Run(ctx, id)
	require.ErrorIs(t, err, client.err)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, storage.StatusError, rec.Status)
	require.Contains(t, rec.Errors, "publish failed")
	require.Empty(t, rec.PublishedURL)
}

func TestRunMissingWorkspaceID(t *testing.T) {
	store, client, _, p := setup(t)
	ctx := context.Background()
	id := seedUploaded(t, store, "")

	require.NoError(t, p.Run(ctx, id))
	require.Empty(t, client.published)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, storage.StatusError, rec.Status)
	require.Contains(t, rec.Errors, "missing datalumos_id")
}

func TestRunNotFoundAnnotatesSheet(t *testing.T) {
	store, client, sheets, p := setup(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "https://x.gov/gone")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, id, map[string]string{"status": storage.StatusNotFound}))

	require.NoError(t, p.Run(ctx, id))
	require.Empty(t, client.published)
	require.Equal(t, []string{"Not found"}, sheets.notes)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "updated_not_found", rec.Status)
}

func TestRunSheetFailureIsWarning(t *testing.T) {
	store, _, sheets, p := setup(t)
	ctx := context.Background()
	id := seedUploaded(t, store, "220652")

	sheets.err = errors.New("sheets api quota exceeded")

	require.NoError(t, p.Run(ctx, id))

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	// the publish itself succeeded, only the write-back was lost
	require.Equal(t, "publisher", rec.Status)
	require.NotEmpty(t, rec.PublishedURL)
	require.Contains(t, rec.Warnings, "inventory sheet update failed")
	require.Empty(t, rec.Errors)
}

func TestRunWithoutSheets(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "publisher-nosheets")
	t.Cleanup(cleanup)
	ctx := context.Background()

	client := &fakePublishClient{}
	p := New(store, report.New(store), config.Default(), client, nil)
	id := seedUploaded(t, store, "220652")

	require.NoError(t, p.Run(ctx, id))

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "publisher", rec.Status)
}
