package downloader

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/domain"
)

type stubSource struct {
	prefix string
	name   string
}

func (s *stubSource) SupportsURL(url string) bool {
	return strings.HasPrefix(url, s.prefix)
}

func (s *stubSource) Resolve(ctx context.Context, url string) ([]domain.SourceItem, error) {
	return []domain.SourceItem{{SourceRef: url, Title: s.name}}, nil
}

func (s *stubSource) Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error) {
	return outputDir + "/" + s.name, nil
}

func TestRouter(t *testing.T) {
	video := &stubSource{prefix: "https://video.", name: "video"}
	page := &stubSource{prefix: "https://", name: "page"}
	router := NewRouter([]ResolverSource{video, page}, []FetcherSource{video})

	items, err := router.Resolve(context.Background(), "https://video.example/list")
	require.NoError(t, err)
	assert.Equal(t, "video", items[0].Title)

	items, err = router.Resolve(context.Background(), "https://blog.example/post")
	require.NoError(t, err)
	assert.Equal(t, "page", items[0].Title, "first matching resolver wins")

	_, err = router.Resolve(context.Background(), "ftp://files.example/list")
	assert.ErrorIs(t, err, ErrUnsupportedURL)

	path, err := router.Fetch(context.Background(), domain.SourceItem{SourceRef: "https://video.example/1"}, "/jobs/x")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/x/video", path)

	_, err = router.Fetch(context.Background(), domain.SourceItem{SourceRef: "https://blog.example/1"}, "/jobs/x")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestDefaultRouterOrder(t *testing.T) {
	router := NewDefaultRouter(NewYtDlp("", "", "", 0), NewPageResolver(0), NewHTTPFetcher(0))

	require.Len(t, router.resolvers, 2)
	assert.True(t, router.resolvers[0].SupportsURL("https://www.youtube.com/playlist?list=PL1"))
	assert.False(t, router.resolvers[0].SupportsURL("https://example.com/set"))
	assert.True(t, router.resolvers[1].SupportsURL("https://example.com/set"))

	require.Len(t, router.fetchers, 2)
	assert.True(t, router.fetchers[0].SupportsURL("https://example.com/a.mp3"))
}
