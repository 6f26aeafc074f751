package orchestration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinStages(t *testing.T) {
	names := Names()
	require.Subset(t, names, []string{
		"noop", "sourcing", "collectors", "upload", "publisher", "cleanup_inprogress",
	})

	// pipeline order: each stage's prerequisite is the previous stage
	chain := map[string]string{
		"sourcing":   "",
		"collectors": "sourcing",
		"upload":     "collectors",
		"publisher":  "upload",
	}
	for name, prereq := range chain {
		entry, ok := Lookup(name)
		require.True(t, ok, name)
		require.Equal(t, prereq, entry.Prereq, name)
	}

	// global stages
	for _, name := range []string{"noop", "cleanup_inprogress"} {
		entry, ok := Lookup(name)
		require.True(t, ok, name)
		require.Empty(t, entry.Prereq, name)
	}
}

func TestLookupMissing(t *testing.T) {
	_, ok := Lookup("does_not_exist")
	require.False(t, ok)
}

func TestEntriesIsACopy(t *testing.T) {
	entries := Entries()
	require.Equal(t, len(Names()), len(entries))
	entries[0].Name = "mutated"
	require.NotEqual(t, "mutated", Names()[0])
}
