package upload

import "context"

// Deposit is the material handed to the archive for one record.
type Deposit struct {
	// IdempotencyKey distinguishes retried deposits of the same record from
	// genuine duplicates on the archive side.
	IdempotencyKey string

	Title      string
	Summary    string
	Agency     string
	Keywords   string
	TimeStart  string
	TimeEnd    string
	SourceURL  string
	FolderPath string
}

// DepositClient is the boundary to the DataLumos deposit workspace. The
// production implementation drives the archive's web workspace; tests
// substitute a fake.
type DepositClient interface {
	// CreateDeposit creates a project, fills its metadata, uploads every
	// file under FolderPath, and returns the archive's project id.
	CreateDeposit(ctx context.Context, dep Deposit) (datalumosID string, err error)

	// ListInProgress returns the workspace ids of projects stuck in the
	// "Deposit In Progress" state.
	ListInProgress(ctx context.Context) ([]string, error)

	// DeleteProject removes a workspace project.
	DeleteProject(ctx context.Context, workspaceID string) error
}
