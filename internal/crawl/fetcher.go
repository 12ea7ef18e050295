package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/bypass"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/fingerprint"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/httpclient"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/proxy"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/useragent"
	"github.com/PuerkitoBio/goquery"
)

// FetchOptions carries the per-request knobs the manager passes through.
// MaxPages and FollowLinks only matter to multi-page implementations; the
// single-page Fetcher ignores them.
type FetchOptions struct {
	Timeout     time.Duration
	UserAgent   string
	MaxPages    int
	FollowLinks bool
}

// FetchResult is the crawler collaborator's outcome for one URL.
// A transport or HTTP-level failure sets Success=false and Error rather than
// surfacing as a Go error; the manager folds it into the job state.
type FetchResult struct {
	Success  bool
	Markdown string
	HTML     string
	Title    string
	Error    string
}

// Crawler abstracts the page-fetching collaborator. The bundled Fetcher is an
// HTTP implementation; a headless-browser wrapper satisfies the same contract.
type Crawler interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)
}

// FetcherConfig configures the bundled HTTP crawler.
type FetcherConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	Fingerprint  fingerprint.Profile
	Agents       *useragent.Pool
	// Proxies, when set, rotates outbound requests through the pool.
	Proxies *proxy.Pool
	// Detectors recognize bot-protection block pages. Nil uses
	// bypass.DefaultDetectors; an empty non-nil slice disables detection.
	Detectors []bypass.Detector
}

// Fetcher fetches a single page over HTTP and extracts its title and a
// markdown rendition of the readable content.
type Fetcher struct {
	cfg    FetcherConfig
	client *httpclient.Client
	logger *slog.Logger
}

var _ Crawler = (*Fetcher)(nil)

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.Agents == nil {
		cfg.Agents = useragent.NewPool(nil)
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if logger == nil {
		logger = slog.Default()
	}

	rt, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}
	if cfg.Proxies != nil {
		if transport, ok := rt.(*http.Transport); ok {
			transport.Proxy = func(*http.Request) (*url.URL, error) {
				return cfg.Proxies.Next(), nil
			}
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    rt,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{cfg: cfg, client: client, logger: logger}, nil
}

// Fetch executes a GET against the target URL. Errors below the collaborator
// contract (transport failures, bad statuses) are reported inside the result.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, opts FetchOptions) (*FetchResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return &FetchResult{Error: fmt.Sprintf("invalid url: %v", err)}, nil
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = f.cfg.Agents.GetSequential()
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		// Preserve deadline errors so the manager can report a timeout
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &FetchResult{Error: fmt.Sprintf("request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchResult{Error: fmt.Sprintf("read body: %v", err)}, nil
	}

	// Detection runs before the status check so a challenge page is reported
	// as a block rather than a bare status error
	if detected, source := bypass.Analyze(resp.StatusCode, resp.Header, body, f.cfg.Detectors); detected {
		f.logger.Warn("bot protection detected", "url", targetURL, "source", source)
		return &FetchResult{Error: "blocked by " + source}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FetchResult{Error: fmt.Sprintf("http status %d", resp.StatusCode)}, nil
	}

	result := &FetchResult{
		Success: true,
		HTML:    string(body),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		// Non-HTML content still counts as a successful fetch
		f.logger.Debug("content not parseable as html", "url", targetURL, "err", err)
		return result, nil
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	result.Markdown = renderMarkdown(doc)
	return result, nil
}

// renderMarkdown flattens the readable parts of a page into a lightweight
// markdown rendition: headings, paragraphs, list items, and code blocks.
func renderMarkdown(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var b strings.Builder
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		switch name := goquery.NodeName(s); name {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(name[1] - '0')
			b.WriteString(strings.Repeat("#", level))
			b.WriteString(" ")
			b.WriteString(text)
			b.WriteString("\n\n")
		case "li":
			b.WriteString("- ")
			b.WriteString(text)
			b.WriteString("\n")
		case "pre":
			b.WriteString("```\n")
			b.WriteString(text)
			b.WriteString("\n```\n\n")
		default:
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	})

	return strings.TrimSpace(b.String())
}
