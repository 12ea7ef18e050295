package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/oxffaa/gopher-parse-sitemap"
)

// maxSitemapDepth bounds recursion through nested sitemap indexes.
const maxSitemapDepth = 3

// SitemapEnumerator discovers a site's page URLs from its sitemap. Multi-page
// crawls prefer sitemap entries over link-following because they enumerate the
// documentation set directly.
type SitemapEnumerator struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewSitemapEnumerator initializes a new SitemapEnumerator.
func NewSitemapEnumerator(fetcher *Fetcher, logger *slog.Logger) *SitemapEnumerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapEnumerator{fetcher: fetcher, logger: logger}
}

// Enumerate fetches the origin's /sitemap.xml and returns up to limit page
// URLs. Sitemap indexes are followed recursively.
func (s *SitemapEnumerator) Enumerate(ctx context.Context, siteURL string, limit int) ([]string, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}
	if limit <= 0 {
		limit = 50
	}

	sitemapURL := u.Scheme + "://" + u.Host + "/sitemap.xml"
	return s.fetchAndParse(ctx, sitemapURL, limit, 0)
}

func (s *SitemapEnumerator) fetchAndParse(ctx context.Context, sitemapURL string, limit, depth int) ([]string, error) {
	if depth > maxSitemapDepth {
		return nil, fmt.Errorf("sitemap nesting exceeds depth %d", maxSitemapDepth)
	}

	s.logger.Debug("fetching sitemap", "url", sitemapURL)

	result, err := s.fetcher.Fetch(ctx, sitemapURL, FetchOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("fetch sitemap: %s", result.Error)
	}

	var urls []string
	err = sitemap.Parse(strings.NewReader(result.HTML), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if err == nil && len(urls) > 0 {
		if len(urls) > limit {
			urls = urls[:limit]
		}
		return urls, nil
	}

	// Not a plain sitemap; try parsing as a sitemap index
	var nested []string
	indexErr := sitemap.ParseIndex(strings.NewReader(result.HTML), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		return nil, fmt.Errorf("no entries parsed from %s as sitemap or index", sitemapURL)
	}

	for _, nestedURL := range nested {
		if len(urls) >= limit {
			break
		}
		nestedURLs, fetchErr := s.fetchAndParse(ctx, nestedURL, limit-len(urls), depth+1)
		if fetchErr != nil {
			s.logger.Warn("failed to fetch nested sitemap", "url", nestedURL, "err", fetchErr)
			continue
		}
		urls = append(urls, nestedURLs...)
	}
	return urls, nil
}
