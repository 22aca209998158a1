package downloader

import (
	"context"
	"fmt"

	"github.com/jaki95/playlist2album/internal/domain"
)

// ResolverSource is a Resolver that knows which URLs it handles.
type ResolverSource interface {
	Resolver
	SupportsURL(url string) bool
}

// FetcherSource is a Fetcher that knows which URLs it handles.
type FetcherSource interface {
	Fetcher
	SupportsURL(url string) bool
}

// Router dispatches to the first resolver or fetcher supporting the URL.
type Router struct {
	resolvers []ResolverSource
	fetchers  []FetcherSource
}

func NewRouter(resolvers []ResolverSource, fetchers []FetcherSource) *Router {
	return &Router{resolvers: resolvers, fetchers: fetchers}
}

// NewDefaultRouter wires yt-dlp for known media sites, direct HTTP fetching
// for audio links and page scraping for everything else.
func NewDefaultRouter(ytdlp *YtDlp, page *PageResolver, httpFetcher *HTTPFetcher) *Router {
	return NewRouter(
		[]ResolverSource{ytdlp, page},
		[]FetcherSource{httpFetcher, ytdlp},
	)
}

func (r *Router) Resolve(ctx context.Context, playlistURL string) ([]domain.SourceItem, error) {
	for _, res := range r.resolvers {
		if res.SupportsURL(playlistURL) {
			return res.Resolve(ctx, playlistURL)
		}
	}
	return nil, fmt.Errorf("%w: no resolver for %s", ErrUnsupportedURL, playlistURL)
}

func (r *Router) Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error) {
	for _, f := range r.fetchers {
		if f.SupportsURL(item.SourceRef) {
			return f.Fetch(ctx, item, outputDir)
		}
	}
	return "", fmt.Errorf("%w: no fetcher for %s", ErrUnsupportedURL, item.SourceRef)
}
