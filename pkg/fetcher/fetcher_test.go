package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/listing.html":
			w.Write([]byte(`<html><body>
				<a href="/dataset/1.html">One</a>
				<a href="/about.html">About</a>
			</body></html>`))
		case "/dataset/1.html":
			w.Write([]byte(`<html><body><p>Data Format(s): NetCDF, CSV</p></body></html>`))
		case "/huge.html":
			w.Write([]byte(`<html><body><p>Data Format(s): HDF</p>`))
			chunk := []byte("<p>" + strings.Repeat("z", 4096) + "</p>")
			for i := 0; i < 512; i++ {
				w.Write(chunk)
			}
			w.Write([]byte(`</body></html>`))
		case "/ua":
			w.Write([]byte(`<html><body>` + r.Header.Get("User-Agent") + `</body></html>`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`<html><body>late</body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDiscoverLinks(t *testing.T) {
	server := newCatalogServer(t)
	f := New(WithLogger(zaptest.NewLogger(t)))

	links, err := f.DiscoverLinks(context.Background(), server.URL+"/listing.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dataset/1.html", "/about.html"}, links)
}

func TestExtractText(t *testing.T) {
	server := newCatalogServer(t)
	f := New()

	text, err := f.ExtractText(context.Background(), server.URL+"/dataset/1.html", 10<<20)
	require.NoError(t, err)
	assert.Equal(t, []string{"NetCDF", " CSV"}, extractor.ExtractFormatTokens(text))
}

func TestExtractTextTruncates(t *testing.T) {
	server := newCatalogServer(t)
	f := New(WithLogger(zaptest.NewLogger(t)))

	text, err := f.ExtractText(context.Background(), server.URL+"/dataset/1.html", 15)
	require.NoError(t, err)
	assert.Equal(t, "Data Format(s):", text)
}

func TestExtractTextBoundsLargePage(t *testing.T) {
	server := newCatalogServer(t)
	f := New(WithLogger(zaptest.NewLogger(t)))

	text, err := f.ExtractText(context.Background(), server.URL+"/huge.html", 64<<10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), 64<<10)
	assert.Equal(t, []string{"HDF"}, extractor.ExtractFormatTokens(text))
}

func TestDefaultMaxBodyBytes(t *testing.T) {
	assert.Equal(t, int64(20<<20), New().maxBodyBytes)
}

func TestMaxBodyBytes(t *testing.T) {
	server := newCatalogServer(t)
	f := New(WithMaxBodyBytes(20))

	text, err := f.ExtractText(context.Background(), server.URL+"/dataset/1.html", 10<<20)
	require.NoError(t, err)
	assert.NotContains(t, text, "NetCDF")
}

func TestUserAgent(t *testing.T) {
	server := newCatalogServer(t)

	text, err := New().ExtractText(context.Background(), server.URL+"/ua", 1024)
	require.NoError(t, err)
	assert.Contains(t, text, "formatcensus/1.0")

	text, err = New(WithUserAgent("census-test")).ExtractText(context.Background(), server.URL+"/ua", 1024)
	require.NoError(t, err)
	assert.Equal(t, "census-test", strings.TrimSpace(text))
}

func TestFetchErrors(t *testing.T) {
	server := newCatalogServer(t)

	tests := []struct {
		name       string
		fetcher    *HTTPFetcher
		url        string
		wantStatus int
	}{
		{
			name:       "not found",
			fetcher:    New(),
			url:        server.URL + "/missing.html",
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "timeout",
			fetcher: New(WithTimeout(20 * time.Millisecond)),
			url:     server.URL + "/slow",
		},
		{
			name:    "bad url",
			fetcher: New(),
			url:     "://nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fetcher.ExtractText(context.Background(), tt.url, 1024)
			require.Error(t, err)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.url, fetchErr.URL)
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
			if tt.wantStatus != 0 {
				assert.ErrorIs(t, err, ErrStatus)
			}

			_, err = tt.fetcher.DiscoverLinks(context.Background(), tt.url)
			assert.Error(t, err)
		})
	}
}

func TestAllowed(t *testing.T) {
	server := newCatalogServer(t)
	f := New()
	ctx := context.Background()

	assert.True(t, f.Allowed(ctx, server.URL+"/dataset/1.html"))
	assert.False(t, f.Allowed(ctx, server.URL+"/private/secret.html"))
	assert.True(t, f.Allowed(ctx, "not a url"))
}

func TestAllowedWithoutRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.True(t, New().Allowed(context.Background(), server.URL+"/private/x"))
}
