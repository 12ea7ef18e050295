package ratelimit

import (
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// DefaultMinDelay is the minimum interval between crawls of the same host.
const DefaultMinDelay = 1 * time.Second

// HostGate is a per-host admission gate: it permits at most one crawl per
// host within the configured minimum delay. A successful check records the
// attempt immediately, even if the crawl that follows fails.
// It is safe for concurrent use by multiple goroutines.
type HostGate struct {
	minDelay time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastCrawl map[string]time.Time
}

// NewHostGate creates a gate with the given minimum per-host delay.
// A delay <= 0 falls back to DefaultMinDelay.
func NewHostGate(minDelay time.Duration, logger *slog.Logger) *HostGate {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HostGate{
		minDelay:  minDelay,
		logger:    logger,
		now:       time.Now,
		lastCrawl: make(map[string]time.Time),
	}
}

// CanCrawl reports whether a crawl of the URL's host is admitted right now.
// Admission records the attempt for the host; denial leaves the recorded
// timestamp untouched. An unparseable URL is admitted so that the failure
// surfaces from the crawl itself rather than here.
func (g *HostGate) CanCrawl(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		g.logger.Warn("rate limiter could not parse url, allowing", "url", rawURL)
		return true
	}
	host := u.Host

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastCrawl[host]; ok {
		if now.Sub(last) < g.minDelay {
			g.logger.Info("rate limited", "host", host)
			return false
		}
	}

	g.lastCrawl[host] = now
	return true
}

// MinDelay returns the configured minimum per-host delay.
func (g *HostGate) MinDelay() time.Duration {
	return g.minDelay
}

// Reset forgets all recorded hosts.
func (g *HostGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCrawl = make(map[string]time.Time)
}

// SetClock overrides the gate's time source. Intended for tests.
func (g *HostGate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}
