package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/domain"
)

const listingPage = `<!DOCTYPE html>
<html><body>
  <h1>Live at the Park</h1>
  <ul>
    <li><a href="/audio/01-opening.mp3">  Opening
        Theme </a></li>
    <li><a href="about.html">About</a></li>
    <li><a href="audio/second%20song.flac"></a></li>
    <li><a href="/audio/01-opening.mp3">Opening (again)</a></li>
    <li><a href="https://cdn.example.com/encore.m4a?dl=1">Encore</a></li>
  </ul>
</body></html>`

func TestPageResolverResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sets/park" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	items, err := NewPageResolver(5*time.Second).Resolve(context.Background(), srv.URL+"/sets/park")
	require.NoError(t, err)

	assert.Equal(t, []domain.SourceItem{
		{SourceRef: srv.URL + "/audio/01-opening.mp3", Title: "Opening Theme"},
		{SourceRef: srv.URL + "/sets/audio/second%20song.flac", Title: "second song"},
		{SourceRef: "https://cdn.example.com/encore.m4a?dl=1", Title: "Encore"},
	}, items)
}

func TestPageResolverNoAudioLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))
	defer srv.Close()

	items, err := NewPageResolver(0).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPageResolverHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewPageResolver(0).Resolve(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestPageResolverDirectAudioLink(t *testing.T) {
	items, err := NewPageResolver(0).Resolve(context.Background(), "https://cdn.example.com/sets/Big%20Room.mp3")
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceItem{{SourceRef: "https://cdn.example.com/sets/Big%20Room.mp3", Title: "Big Room"}}, items)
}
