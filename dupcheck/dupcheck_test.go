package dupcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"datarescue-backend/lib/testutil"
)

func TestExistsInStorage(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "dupcheck")
	defer cleanup()
	ctx := context.Background()

	_, err := store.Create(ctx, "https://x.gov/data")
	require.NoError(t, err)

	checker := New(store, time.Second)

	exists, err := checker.ExistsInStorage(ctx, "https://x.gov/data")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = checker.ExistsInStorage(ctx, "https://x.gov/other")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSearchDataLumos(t *testing.T) {
	store, cleanup := testutil.SetupStorage(t, "dupcheck-search")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "datalumos", r.URL.Query().Get("ARCHIVE"))
		q := r.URL.Query().Get("q")
		switch q {
		case "https://x.gov/hit":
			fmt.Fprint(w, `<html><body><script>
				var results = {"numFound": 2, "docs": [{"ID": 220081}, {"ID": 220944}]};
			</script></body></html>`)
		case "https://x.gov/none":
			fmt.Fprint(w, `<html><body><script>var results = {"numFound": 0};</script></body></html>`)
		default:
			fmt.Fprint(w, `<html><body>Just a moment...</body></html>`)
		}
	}))
	defer server.Close()

	checker := New(store, time.Second*5)
	checker.searchBase = server.URL
	ctx := context.Background()

	ids, err := checker.SearchDataLumos(ctx, "https://x.gov/hit")
	require.NoError(t, err)
	require.Equal(t, []int64{220081, 220944}, ids)

	ids, err = checker.SearchDataLumos(ctx, "https://x.gov/none")
	require.NoError(t, err)
	require.Empty(t, ids)

	// a cloudflare challenge reads as "could not check", not an error
	ids, err = checker.SearchDataLumos(ctx, "https://x.gov/challenged")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestExtractDistributionURL(t *testing.T) {
	body := `<html><body>
		<nav><a href="/home">https://www.datalumos.org</a></nav>
		<div class="study-metadata">
			<div class="row">
				<div class="label">Original Distribution URL</div>
				<div class="value"><a href="https://x.gov/data">https://x.gov/data</a></div>
			</div>
		</div>
	</body></html>`

	url, ok := extractDistributionURL(body)
	require.True(t, ok)
	require.Equal(t, "https://x.gov/data", url)
}

func TestExtractDistributionURLAnchorInSibling(t *testing.T) {
	body := `<html><body>
		<dt>Original Distribution URL</dt>
		<dd><a href="https://x.gov/data">https://x.gov/data</a></dd>
	</body></html>`

	url, ok := extractDistributionURL(body)
	require.True(t, ok)
	require.Equal(t, "https://x.gov/data", url)
}

func TestExtractDistributionURLMissing(t *testing.T) {
	_, ok := extractDistributionURL(`<html><body><p>No metadata here</p></body></html>`)
	require.False(t, ok)
}
