package client

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"go/parser"
	"go/token"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/config"
	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/audio"
	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/job"
	"github.com/jaki95/playlist2album/internal/progress"
	"github.com/jaki95/playlist2album/internal/server"
	"github.com/jaki95/playlist2album/internal/storage"
)

type listResolver []domain.SourceItem

func (l listResolver) Resolve(ctx context.Context, playlistURL string) ([]domain.SourceItem, error) {
	return l, nil
}

type mp3Fetcher struct{}

func (mp3Fetcher) Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, filepath.Base(item.SourceRef)+".mp3")
	data := append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 512)...)
	return path, os.WriteFile(path, data, 0644)
}

func newTestAPI(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.OutputDir = t.TempDir()
	store, err := storage.NewLocalStorage(cfg.Storage.OutputDir)
	require.NoError(t, err)

	srv := server.NewWithComponents(cfg, server.Components{
		Resolver: listResolver{
			{SourceRef: "https://youtu.be/one", Title: "One"},
			{SourceRef: "https://youtu.be/two", Title: "Two"},
		},
		Fetcher: mp3Fetcher{},
		Tagger:  audio.NewID3Tagger(),
		Storage: store,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return New(ts.URL + "/")
}

func TestClientFullFlow(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, "https://www.youtube.com/playlist?list=PL1", domain.AlbumMeta{Title: "Two Songs"})
	require.NoError(t, err)
	require.NotEmpty(t, created.JobID)

	var seen []progress.State
	state, err := c.WaitFetched(ctx, created.JobID, 10*time.Millisecond, func(s progress.State) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	assert.Equal(t, progress.StageCompleted, state.Status)
	assert.Equal(t, 2, state.Succeeded)
	assert.NotEmpty(t, seen)

	manifest, err := c.Manifest(ctx, created.JobID)
	require.NoError(t, err)
	require.Len(t, manifest.Tracks, 2)

	res, err := c.Finalize(ctx, created.JobID, api.FinalizeRequest{
		Album:         domain.AlbumMeta{Title: "Two Songs", Artist: "Duo"},
		OrderedTracks: []api.TrackEdit{{ID: 2}, {ID: 1, Title: "Uno"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/download/Duo - Two Songs.zip", res.ArtifactURL)
	assert.Equal(t, 2, res.Count)

	j, err := c.Job(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFinalized, j.Status)

	var buf bytes.Buffer
	require.NoError(t, c.Download(ctx, res.ArtifactURL, &buf))
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "01 - Two.mp3", zr.File[0].Name)
	assert.Equal(t, "02 - Uno.mp3", zr.File[1].Name)
}

func TestClientAPIError(t *testing.T) {
	c := newTestAPI(t)

	_, err := c.Manifest(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "job not found")

	err = c.Download(context.Background(), "/download/nothing.zip", &bytes.Buffer{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWaitFetchedCancelled(t *testing.T) {
	// A job that never progresses.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"downloading","total":3,"current":1}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(ts.URL).WaitFetched(ctx, "j1", 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// The CLI links this package, so it must stay clear of the server and its
// transport and storage stack.
func TestClientDependencies(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	forbidden := []string{
		"github.com/jaki95/playlist2album/internal/server",
		"github.com/jaki95/playlist2album/internal/finalize",
		"github.com/jaki95/playlist2album/internal/storage",
		"github.com/gin-gonic/gin",
	}

	fset := token.NewFileSet()
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			importPath, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			assert.NotContains(t, forbidden, importPath, "%s imports %s", file, importPath)
		}
	}
}
