package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/domain"
)

func audioServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/music/track one.mp3":
			w.Write([]byte("ID3\x03\x00audio"))
		case "/music/attached.mp3":
			w.Header().Set("Content-Disposition", `attachment; filename="Named: Track.flac"`)
			w.Write([]byte("fLaC\x00\x00\x00\x22"))
		case "/music/login.mp3":
			w.Write([]byte("<!DOCTYPE html><html><body>Please sign in</body></html>"))
		case "/music/empty.mp3":
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcherSupportsURL(t *testing.T) {
	f := NewHTTPFetcher(0)
	assert.True(t, f.SupportsURL("https://cdn.example.com/a.mp3"))
	assert.True(t, f.SupportsURL("http://cdn.example.com/a.FLAC?sig=1"))
	assert.False(t, f.SupportsURL("https://cdn.example.com/page"))
	assert.False(t, f.SupportsURL("file:///tmp/a.mp3"))
}

func TestHTTPFetcherFetch(t *testing.T) {
	srv := audioServer(t)
	f := NewHTTPFetcher(10 * time.Second)

	t.Run("name from URL", func(t *testing.T) {
		dir := t.TempDir()
		path, err := f.Fetch(context.Background(), domain.SourceItem{SourceRef: srv.URL + "/music/track%20one.mp3"}, dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "track one.mp3"), path)
	})

	t.Run("name from content disposition", func(t *testing.T) {
		dir := t.TempDir()
		path, err := f.Fetch(context.Background(), domain.SourceItem{SourceRef: srv.URL + "/music/attached.mp3"}, dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Named Track.flac"), path)
	})

	failures := map[string]string{
		"html instead of audio": "/music/login.mp3",
		"empty body":            "/music/empty.mp3",
		"not found":             "/music/missing.mp3",
	}
	for name, p := range failures {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := f.Fetch(context.Background(), domain.SourceItem{SourceRef: srv.URL + p}, dir)
			require.Error(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing is left behind")
		})
	}
}

func TestHTTPFetcherCancelled(t *testing.T) {
	srv := audioServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(0).Fetch(ctx, domain.SourceItem{SourceRef: srv.URL + "/music/track%20one.mp3"}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
