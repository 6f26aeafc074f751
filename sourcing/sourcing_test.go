package sourcing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidates(t *testing.T) {
	csvText := "URL,Office,Agency,Claimed (add your name),Download Location\n" +
		"https://x.gov/a,NCHS,CDC,,\n" +
		"https://x.gov/b,,HHS,alice,\n" +
		"https://x.gov/c,,,,DRP000004\n" +
		"https://x.gov/d,OASH,HHS,,\n" +
		",,,,\n"

	candidates, skipped, err := extractCandidates(csvText, "URL", 0)
	require.NoError(t, err)
	require.Equal(t, 3, skipped)

	want := []Candidate{
		{URL: "https://x.gov/a", Office: "NCHS", Agency: "CDC"},
		{URL: "https://x.gov/d", Office: "OASH", Agency: "HHS"},
	}
	if diff := cmp.Diff(want, candidates); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractCandidatesLimit(t *testing.T) {
	csvText := "URL,Claimed (add your name),Download Location\n" +
		"https://x.gov/a,,\n" +
		"https://x.gov/b,,\n" +
		"https://x.gov/c,,\n"

	candidates, _, err := extractCandidates(csvText, "URL", 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "https://x.gov/a", candidates[0].URL)
	require.Equal(t, "https://x.gov/b", candidates[1].URL)
}

func TestExtractCandidatesBOM(t *testing.T) {
	csvText := "\uFEFFURL,Claimed (add your name),Download Location\n" +
		"https://x.gov/a,,\n"

	candidates, _, err := extractCandidates(csvText, "URL", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestExtractCandidatesMissingColumn(t *testing.T) {
	csvText := "Link,Claimed (add your name),Download Location\nhttps://x.gov/a,,\n"

	_, _, err := extractCandidates(csvText, "URL", 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"URL"`)
}

func TestExtractCandidatesRaggedRows(t *testing.T) {
	// short rows are common in sheet exports; missing cells read as empty
	csvText := "URL,Office,Agency,Claimed (add your name),Download Location\n" +
		"https://x.gov/a\n"

	candidates, _, err := extractCandidates(csvText, "URL", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Empty(t, candidates[0].Office)
}

func TestIDRange(t *testing.T) {
	require.Equal(t, "", idRange(nil))
	require.Equal(t, "7", idRange([]int64{7}))
	require.Equal(t, "3-9", idRange([]int64{7, 3, 9}))
}
