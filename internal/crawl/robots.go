package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/Dkhotpockets/ollama-notebookllm/pkg/httpclient"
	"github.com/temoto/robotstxt"
)

// RobotsAuditor fetches, caches, and enforces robots.txt per origin.
// A failed fetch or parse is treated as allow: politeness must not turn an
// unreachable robots.txt into an unreachable site.
type RobotsAuditor struct {
	client *httpclient.Client
	logger *slog.Logger
	mu     sync.RWMutex
	cache  map[string]*robotstxt.RobotsData
}

// NewRobotsAuditor creates a new instance.
func NewRobotsAuditor(client *httpclient.Client, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAuditor{
		client: client,
		logger: logger,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed determines if the URL may be crawled under the origin's robots.txt
// for the given User-Agent. The error is non-nil only for an invalid URL.
func (r *RobotsAuditor) Allowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	origin := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, origin, userAgent)
	if err != nil {
		r.logger.Warn("robots.txt fetch failed, defaulting to allow", "origin", origin, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	group := data.FindGroup(userAgent)
	return group.Test(u.Path), nil
}

func (r *RobotsAuditor) getOrFetch(ctx context.Context, origin, userAgent string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, exists := r.cache[origin]
	r.mu.RUnlock()

	if exists {
		return data, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, exists = r.cache[origin]
	if exists {
		return data, nil
	}

	robotsURL := origin + "/robots.txt"
	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// No robots.txt (or access denied to it) means no restrictions
		r.cache[origin] = nil
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	parsed, err := robotstxt.FromBytes(body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache[origin] = parsed
	return parsed, nil
}
