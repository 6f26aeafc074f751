package orchestration

import "context"

// GlobalRun is the record id passed to a module with no prerequisite: it runs
// once over an external input instead of once per eligible record.
const GlobalRun int64 = -1

// Module is the contract every pipeline stage satisfies. Run processes a
// single record identified by drpid, or the whole external input when drpid
// is GlobalRun. On success the module advances the record's status to its own
// stage name; on failure it returns an error and leaves status unchanged so a
// later run can retry the record.
type Module interface {
	Run(ctx context.Context, drpid int64) error
}

// noopModule exists to exercise the dispatch machinery without touching any
// record.
type noopModule struct{}

func (noopModule) Run(ctx context.Context, drpid int64) error {
	return nil
}
