package urlutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"datarescue-backend/lib/telemetry"
)

func TestIsValidURL(t *testing.T) {
	require.True(t, IsValidURL("https://data.cdc.gov/d/abcd-1234"))
	require.True(t, IsValidURL("http://example.gov"))
	require.True(t, IsValidURL("  https://example.gov  "))
	require.False(t, IsValidURL("ftp://example.gov/file"))
	require.False(t, IsValidURL("data.cdc.gov"))
	require.False(t, IsValidURL(""))
}

func TestBodyLooksLikeNotFound(t *testing.T) {
	require.True(t, BodyLooksLikeNotFound(
		"<html><body><h1>Page Not Found</h1></body></html>"))
	require.True(t, BodyLooksLikeNotFound(
		"<html><body>Sorry, the page you requested could not be found.</body></html>"))
	require.False(t, BodyLooksLikeNotFound(
		"<html><body><h1>Vaccination Coverage</h1></body></html>"))

	// phrases inside scripts must not count as the rendered page text
	require.False(t, BodyLooksLikeNotFound(
		`<html><body><h1>Data</h1><script>var m = "page not found";</script></body></html>`))
}

func TestFetchPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:urlutil")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Dataset</body></html>"))
	})
	mux.HandleFunc("/soft404", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>Page not found</body></html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("a,b\n1,2\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	client := NewClient(time.Second * 5)

	{
		page, err := FetchPage(ctx, client, server.URL+"/ok")
		require.NoError(t, err)
		require.Equal(t, 200, page.StatusCode)
		require.Equal(t, "text/html", page.ContentType)
		require.False(t, page.LogicalNotFound)
	}
	{
		page, err := FetchPage(ctx, client, server.URL+"/soft404")
		require.NoError(t, err)
		require.Equal(t, 404, page.StatusCode)
		require.True(t, page.LogicalNotFound)
	}
	{
		page, err := FetchPage(ctx, client, server.URL+"/gone")
		require.NoError(t, err)
		require.Equal(t, 404, page.StatusCode)
		require.False(t, page.LogicalNotFound)
	}
	{
		page, err := FetchPage(ctx, client, server.URL+"/csv")
		require.NoError(t, err)
		require.Equal(t, 200, page.StatusCode)
		require.Equal(t, "text/csv", page.ContentType)
		require.Equal(t, "a,b\n1,2\n", page.Body)
	}
}

func TestFetchPageConnectionRefused(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:urlutil-refused")
	defer cleanup()

	// grab a port nothing listens on
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(time.Second * 2)
	page, err := FetchPage(context.Background(), client, url)
	require.NoError(t, err)
	require.Equal(t, 404, page.StatusCode)
}

func TestInferFileType(t *testing.T) {
	cases := []struct {
		url         string
		contentType string
		want        string
	}{
		{"https://x.gov/data/file.csv", "", "csv"},
		{"https://x.gov/data/file.CSV?download=1", "", "csv"},
		{"https://x.gov/data/archive.ZIP#section", "", "zip"},
		{"https://x.gov/api/views/abcd-1234/rows.csv?accessType=DOWNLOAD", "", "csv"},
		{"https://x.gov/download", "text/csv; charset=utf-8", "csv"},
		{"https://x.gov/download", "application/vnd.ms-excel", "xls"},
		{"https://x.gov/download", "application/pdf", "pdf"},
		{"https://x.gov/download", "", "unknown"},
		// overly long suffixes aren't extensions
		{"https://x.gov/dataset/report.finalversion", "", "unknown"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, InferFileType(tc.url, tc.contentType),
			"url=%s ct=%s", tc.url, tc.contentType)
	}
}

func TestParseContentType(t *testing.T) {
	require.Equal(t, "text/html", parseContentType("text/html; charset=utf-8"))
	require.Equal(t, "text/csv", parseContentType(" TEXT/CSV "))
	require.Equal(t, "", parseContentType(""))
}
