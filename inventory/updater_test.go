package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{
		1:  "A",
		2:  "B",
		26: "Z",
		27: "AA",
		28: "AB",
		52: "AZ",
		53: "BA",
	}
	for index, want := range cases {
		require.Equal(t, want, columnLetter(index), "index %d", index)
	}
}

func TestMatchHeader(t *testing.T) {
	headers := []string{"URL", "Agency", "claimed (add your name)", "Notes", ""}

	require.Equal(t, 0, matchHeader(headers, "URL"))
	require.Equal(t, 0, matchHeader(headers, "url"))
	// substring fallback for sheets that extend the header
	require.Equal(t, 2, matchHeader(headers, "Claimed"))
	require.Equal(t, 3, matchHeader(headers, "Notes"))
	require.Equal(t, -1, matchHeader(headers, "Dataset Size"))
}

func TestDisplayFileSize(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"512":        "512 B",
		"2048":       "2.0 KB",
		"1572864":    "1.5 MB",
		"3221225472": "3.0 GB",
		"12 MB":      "12 MB", // already human readable, pass through
	}
	for raw, want := range cases {
		require.Equal(t, want, displayFileSize(raw), "raw %q", raw)
	}
}
