package publisher

import (
	"context"

	"datarescue-backend/storage"
)

// PublishClient is the boundary to the DataLumos publish workflow. The
// production implementation drives the archive's workspace UI through the
// review and publish dialogs; tests substitute a fake.
type PublishClient interface {
	// Publish runs the publish workflow for a deposited workspace project.
	Publish(ctx context.Context, workspaceID string) error
}

// SheetUpdater writes outcomes back to the shared inventory spreadsheet so
// volunteers see which rows are done.
type SheetUpdater interface {
	// UpdatePublished marks the record's row as rescued, filling Claimed,
	// Data Added and the Download Location with the published URL.
	UpdatePublished(ctx context.Context, rec storage.Record, publishedURL string) error

	// UpdateUnavailable marks the record's row with a note ("Not found",
	// "No live links") when there was nothing to rescue.
	UpdateUnavailable(ctx context.Context, rec storage.Record, note string) error
}
