// Package discovery finds and ranks web learning resources for a topic.
//
// It layers three pieces: interchangeable search providers normalized behind
// a fallback chain, a URL classifier/ranker, and an engine that fans a topic
// out into query variants and folds the hits into a deduplicated, scored
// resource list.
package discovery

import (
	"context"
	"log/slog"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/metrics"
)

// SearchResult is one normalized hit from a search backend.
type SearchResult struct {
	Title       string
	URL         string
	Description string
}

// Provider abstracts a search backend. Implementations may call an API,
// scrape an HTML results page, or serve from a static directory. The limit
// parameter caps the number of results returned.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Chain tries providers in a fixed priority order and returns the first
// non-empty result list. Provider errors are logged and swallowed; results
// from different providers are never merged within one call.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a chain over the given providers, tried in order.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger}
}

// ChainConfig configures DefaultChain.
type ChainConfig struct {
	// BraveAPIKey enables the Brave Search API provider when non-empty.
	BraveAPIKey string
}

// DefaultChain assembles the standard provider order: Brave Search API when a
// key is configured, the DuckDuckGo HTML scrape, and the curated directory as
// a last resort.
func DefaultChain(cfg ChainConfig, logger *slog.Logger) (*Chain, error) {
	var providers []Provider

	if cfg.BraveAPIKey != "" {
		brave, err := NewBraveProvider(cfg.BraveAPIKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, brave)
	}

	ddg, err := NewDuckDuckGoHTML()
	if err != nil {
		return nil, err
	}
	providers = append(providers, ddg, NewDirectoryProvider())

	return NewChain(logger, providers...), nil
}

// Search runs the query through the providers in order and returns the first
// non-empty result list, truncated to maxResults. It never returns an error:
// when every provider fails or comes back empty the result is an empty slice.
func (c *Chain) Search(ctx context.Context, query string, maxResults int) []SearchResult {
	for _, p := range c.providers {
		c.logger.Info("trying search provider", "provider", p.Name(), "query", query)

		results, err := p.Search(ctx, query, maxResults)
		metrics.RecordSearch(p.Name(), len(results), err)
		if err != nil {
			c.logger.Error("search provider failed", "provider", p.Name(), "err", err)
			continue
		}
		if len(results) == 0 {
			c.logger.Warn("search provider returned no results", "provider", p.Name())
			continue
		}

		c.logger.Info("search provider succeeded", "provider", p.Name(), "results", len(results))
		if len(results) > maxResults && maxResults > 0 {
			results = results[:maxResults]
		}
		return results
	}

	c.logger.Error("all search providers failed", "query", query)
	return nil
}
