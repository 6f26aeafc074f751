package testutil

import (
	"fmt"
	"testing"

	"datarescue-backend/lib/telemetry"
	"datarescue-backend/storage"
)

// SetupStorage creates an in-memory record store with the schema loaded and
// telemetry initialized, returning the store and a cleanup function.
func SetupStorage(t testing.TB, name string) (*storage.Store, func()) {
	telemetryCleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", name))

	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		store.Close()
		telemetryCleanup()
	}
}
