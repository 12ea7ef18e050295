package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SiteCrawler crawls multiple pages of one site, staying on the start URL's
// host. Pages come from the site's sitemap when one exists, falling back to
// breadth-first link following. Single-page requests delegate straight to the
// wrapped Fetcher.
type SiteCrawler struct {
	fetcher  *Fetcher
	sitemaps *SitemapEnumerator
	logger   *slog.Logger
}

var _ Crawler = (*SiteCrawler)(nil)

// NewSiteCrawler wraps a Fetcher with multi-page crawling.
func NewSiteCrawler(fetcher *Fetcher, logger *slog.Logger) *SiteCrawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteCrawler{
		fetcher:  fetcher,
		sitemaps: NewSitemapEnumerator(fetcher, logger),
		logger:   logger,
	}
}

// Fetch crawls up to opts.MaxPages pages starting from startURL and folds
// them into one result. The markdown sections are separated per page; Title
// and HTML come from the first successful page.
func (s *SiteCrawler) Fetch(ctx context.Context, startURL string, opts FetchOptions) (*FetchResult, error) {
	if !opts.FollowLinks || opts.MaxPages <= 1 {
		return s.fetcher.Fetch(ctx, startURL, opts)
	}

	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return &FetchResult{Error: fmt.Sprintf("invalid url: %v", err)}, nil
	}

	first, err := s.fetcher.Fetch(ctx, startURL, opts)
	if err != nil {
		return nil, err
	}
	if !first.Success {
		return first, nil
	}

	queue := s.seedQueue(ctx, startURL, first, opts.MaxPages)
	visited := map[string]struct{}{normalizeURL(startURL): {}}

	combined := &FetchResult{
		Success:  true,
		Markdown: first.Markdown,
		HTML:     first.HTML,
		Title:    first.Title,
	}
	fetched := 1

	for len(queue) > 0 && fetched < opts.MaxPages {
		if ctx.Err() != nil {
			break
		}
		next := queue[0]
		queue = queue[1:]

		norm := normalizeURL(next)
		if _, seen := visited[norm]; seen || !sameHost(start, next) {
			continue
		}
		visited[norm] = struct{}{}

		res, err := s.fetcher.Fetch(ctx, next, opts)
		if err != nil || !res.Success {
			s.logger.Debug("skipping page in site crawl", "url", next)
			continue
		}
		fetched++
		if res.Markdown != "" {
			combined.Markdown += "\n\n---\n\n# " + next + "\n\n" + res.Markdown
		}
		queue = append(queue, extractLinks(next, res.HTML)...)
	}

	s.logger.Info("site crawl finished", "start", startURL, "pages", fetched)
	return combined, nil
}

// seedQueue prefers sitemap entries and falls back to the first page's links.
func (s *SiteCrawler) seedQueue(ctx context.Context, startURL string, first *FetchResult, maxPages int) []string {
	if pages, err := s.sitemaps.Enumerate(ctx, startURL, maxPages*2); err == nil && len(pages) > 0 {
		return pages
	}
	return extractLinks(startURL, first.HTML)
}

// normalizeURL strips the fragment so anchors on one page dedupe together.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	return u.String()
}

func sameHost(start *url.URL, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, start.Host)
}

// extractLinks resolves every anchor on the page against its base URL.
func extractLinks(baseURL, html string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(u).String())
	})
	return links
}
