package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/pkg/httpclient"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/useragent"
	"github.com/PuerkitoBio/goquery"
)

const duckduckgoHTMLEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoHTML scrapes the no-JavaScript DuckDuckGo results page. Slower
// than an API provider but needs no credentials, which makes it the standard
// fallback in the chain.
type DuckDuckGoHTML struct {
	client  *httpclient.Client
	agents  *useragent.Pool
	baseURL string
}

var _ Provider = (*DuckDuckGoHTML)(nil)

// NewDuckDuckGoHTML creates the scrape provider.
func NewDuckDuckGoHTML() (*DuckDuckGoHTML, error) {
	return NewDuckDuckGoHTMLWithBase(duckduckgoHTMLEndpoint)
}

// NewDuckDuckGoHTMLWithBase creates the provider against a different results
// endpoint, for mirrors and tests.
func NewDuckDuckGoHTMLWithBase(baseURL string) (*DuckDuckGoHTML, error) {
	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo client: %w", err)
	}
	return &DuckDuckGoHTML{
		client:  client,
		agents:  useragent.NewPool(nil),
		baseURL: baseURL,
	}, nil
}

func (d *DuckDuckGoHTML) Name() string { return "duckduckgo-html" }

// Search fetches and parses one results page.
func (d *DuckDuckGoHTML) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	reqURL := d.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build duckduckgo request: %w", err)
	}
	// A browser UA avoids being served a blocked or mobile page
	req.Header.Set("User-Agent", d.agents.GetSequential())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo page: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())

		resolved := decodeRedirect(href)
		if title == "" || resolved == "" || strings.HasPrefix(resolved, "/") {
			return true
		}

		results = append(results, SearchResult{
			Title:       title,
			URL:         resolved,
			Description: snippet,
		})
		return len(results) < maxResults
	})

	return results, nil
}

// decodeRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=... links to
// the destination URL. Links without the uddg parameter pass through as-is.
func decodeRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		return dest
	}
	return href
}
