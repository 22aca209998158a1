package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"github.com/jaki95/playlist2album/internal/domain"
)

// PageResolver treats an ordinary web page as a playlist: every link to an
// audio file is an item, in document order.
type PageResolver struct {
	timeout time.Duration
}

func NewPageResolver(timeout time.Duration) *PageResolver {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &PageResolver{timeout: timeout}
}

func (p *PageResolver) SupportsURL(raw string) bool {
	return isHTTP(raw)
}

func (p *PageResolver) Resolve(ctx context.Context, pageURL string) ([]domain.SourceItem, error) {
	// A direct audio link is a playlist of one.
	if audioExtension(pageURL) != "" {
		return []domain.SourceItem{{SourceRef: pageURL, Title: titleFromURL(pageURL)}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.SetRequestTimeout(p.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		slog.Error("Failed to fetch playlist page", "url", r.Request.URL, "status", r.StatusCode, "error", err)
		visitErr = err
	})

	var items []domain.SourceItem
	seen := make(map[string]bool)
	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			link := e.Request.AbsoluteURL(href)
			if link == "" || audioExtension(link) == "" || seen[link] {
				return
			}
			seen[link] = true

			title := strings.Join(strings.Fields(s.Text()), " ")
			if title == "" {
				title = titleFromURL(link)
			}
			items = append(items, domain.SourceItem{SourceRef: link, Title: title})
		})
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, visitErr)
	}

	slog.Info("Resolved page", "url", pageURL, "items", len(items))
	return items, nil
}

// titleFromURL derives a title from the last path segment, minus extension.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
