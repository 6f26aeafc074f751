// Package cleanup implements the "cleanup_inprogress" stage: a global run
// that deletes DataLumos workspace projects stuck in the "Deposit In
// Progress" state, usually left behind by interrupted uploads.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"datarescue-backend/upload"
)

var tracer = otel.Tracer("drp.cleanup")

// Cleanup never touches the record store; it only talks to the archive.
type Cleanup struct {
	client upload.DepositClient
}

func New(client upload.DepositClient) *Cleanup {
	return &Cleanup{client: client}
}

// Run lists in-progress workspace projects and deletes each one. A failing
// delete is logged and skipped so one stubborn project doesn't block the
// rest.
func (c *Cleanup) Run(ctx context.Context, drpid int64) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	ids, err := c.client.ListInProgress(ctx)
	if err != nil {
		return fmt.Errorf("list in-progress projects: %w", err)
	}
	slog.InfoContext(ctx, "cleanup in progress", "found", len(ids))

	deleted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.client.DeleteProject(ctx, id); err != nil {
			slog.WarnContext(ctx, "failed to delete in-progress project",
				"workspace_id", id, "err", err)
			continue
		}
		deleted++
		slog.InfoContext(ctx, "deleted in-progress project", "workspace_id", id)
	}
	slog.InfoContext(ctx, "cleanup finished", "deleted", deleted, "found", len(ids))
	return nil
}
