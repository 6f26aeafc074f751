package orchestration

import (
	"datarescue-backend/cleanup"
	"datarescue-backend/collectors"
	"datarescue-backend/config"
	"datarescue-backend/publisher"
	"datarescue-backend/report"
	"datarescue-backend/sourcing"
	"datarescue-backend/storage"
	"datarescue-backend/upload"
)

// Deps carries everything a stage module may need. External service clients
// are interfaces so tests can substitute fakes.
type Deps struct {
	Store    *storage.Store
	Reporter report.Reporter
	Config   config.Config
	Deposits upload.DepositClient
	Publish  publisher.PublishClient
	Sheets   publisher.SheetUpdater
}

// Entry describes one registered stage. Prereq is the status value a record
// must hold to be eligible; an empty Prereq means the stage runs once
// globally with GlobalRun instead of per record.
type Entry struct {
	Name   string
	Prereq string
	New    func(Deps) Module
}

// registry is the static stage table. Order matters only for display; the
// orchestrator needs no changes when a stage is added here.
var registry = []Entry{
	{
		Name: "noop",
		New:  func(Deps) Module { return noopModule{} },
	},
	{
		Name: "sourcing",
		New: func(d Deps) Module {
			return sourcing.New(d.Store, d.Reporter, d.Config)
		},
	},
	{
		Name:   "collectors",
		Prereq: "sourcing",
		New: func(d Deps) Module {
			return collectors.NewSocrata(d.Store, d.Reporter, d.Config)
		},
	},
	{
		Name:   "upload",
		Prereq: "collectors",
		New: func(d Deps) Module {
			return upload.New(d.Store, d.Reporter, d.Config, d.Deposits)
		},
	},
	{
		Name:   "publisher",
		Prereq: "upload",
		New: func(d Deps) Module {
			return publisher.New(d.Store, d.Reporter, d.Config, d.Publish, d.Sheets)
		},
	},
	{
		Name: "cleanup_inprogress",
		New: func(d Deps) Module {
			return cleanup.New(d.Deposits)
		},
	},
}

// Register adds a stage to the registry. The built-in stages register above;
// this exists so a new stage needs no orchestrator changes.
func Register(entry Entry) {
	registry = append(registry, entry)
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Entry, bool) {
	for _, e := range registry {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns the registered stages in registration order.
func Entries() []Entry {
	out := make([]Entry, len(registry))
	copy(out, registry)
	return out
}

// Names returns all registered stage names in registration order.
func Names() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.Name
	}
	return names
}
