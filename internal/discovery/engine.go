package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Resource is a discovered learning resource, classified and scored.
// Instances are immutable once returned from a discovery run.
type Resource struct {
	URL           string
	Title         string
	Description   string
	SourceType    SourceType
	PriorityScore float64
}

// EngineConfig provides parameters for the discovery engine.
type EngineConfig struct {
	// MaxResultsPerQuery caps what each query variant fetches (default 10)
	MaxResultsPerQuery int
	// EnableCache keeps prior runs in memory keyed by (topic, maxResources).
	// The cache is never invalidated automatically; call ClearCache.
	EnableCache bool
}

// Engine expands one topic into query variants, runs them concurrently
// through the provider chain, and folds the hits into a ranked resource list.
type Engine struct {
	cfg    EngineConfig
	chain  *Chain
	logger *slog.Logger

	cacheMu sync.Mutex
	cache   map[string][]Resource
}

// NewEngine creates a discovery engine over the given provider chain.
func NewEngine(cfg EngineConfig, chain *Chain, logger *slog.Logger) *Engine {
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		chain:  chain,
		logger: logger,
		cache:  make(map[string][]Resource),
	}
}

// searchQueries builds the fixed query variants for a topic.
func searchQueries(topic string) []string {
	return []string{
		topic + " official documentation",
		topic + " tutorial beginner guide",
		topic + " getting started guide",
		"learn " + topic + " step by step",
		topic + " best practices examples",
		topic + " github repository tutorial",
	}
}

// DiscoverResources finds learning resources for the topic, sorted descending
// by priority score and truncated to maxResources. A single failed query
// variant is excluded without failing the run; the returned error is non-nil
// only when the context is cancelled.
func (e *Engine) DiscoverResources(ctx context.Context, topic string, maxResources int) ([]Resource, error) {
	cacheKey := fmt.Sprintf("%s:%d", topic, maxResources)
	if e.cfg.EnableCache {
		e.cacheMu.Lock()
		cached, ok := e.cache[cacheKey]
		e.cacheMu.Unlock()
		if ok {
			e.logger.Info("using cached discovery results", "topic", topic)
			return cached, nil
		}
	}

	e.logger.Info("discovering resources", "topic", topic)

	queries := searchQueries(topic)
	perQuery := make([][]Resource, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			perQuery[i] = e.searchOne(gCtx, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discovery cancelled: %w", err)
	}

	var all []Resource
	for _, rs := range perQuery {
		all = append(all, rs...)
	}

	final := rankResources(deduplicate(all), maxResources)
	metrics.DiscoveredResources.Observe(float64(len(final)))

	if e.cfg.EnableCache {
		e.cacheMu.Lock()
		e.cache[cacheKey] = final
		e.cacheMu.Unlock()
	}

	e.logger.Info("discovery finished", "topic", topic, "resources", len(final))
	return final, nil
}

// searchOne runs one query variant and classifies/scores the raw hits.
// Results missing a URL or title are skipped.
func (e *Engine) searchOne(ctx context.Context, query string) []Resource {
	hits := e.chain.Search(ctx, query, e.cfg.MaxResultsPerQuery)

	resources := make([]Resource, 0, len(hits))
	for _, hit := range hits {
		if hit.URL == "" || hit.Title == "" {
			continue
		}
		sourceType := ClassifySource(hit.URL)
		resources = append(resources, Resource{
			URL:           hit.URL,
			Title:         hit.Title,
			Description:   hit.Description,
			SourceType:    sourceType,
			PriorityScore: PriorityScore(hit.URL, hit.Title, hit.Description, sourceType),
		})
	}
	return resources
}

// deduplicate removes duplicate URLs, keeping the highest-scoring entry.
func deduplicate(resources []Resource) []Resource {
	byURL := make(map[string]Resource, len(resources))
	for _, r := range resources {
		existing, seen := byURL[r.URL]
		if !seen || r.PriorityScore > existing.PriorityScore {
			byURL[r.URL] = r
		}
	}

	unique := make([]Resource, 0, len(byURL))
	for _, r := range byURL {
		unique = append(unique, r)
	}
	return unique
}

// rankResources sorts descending by score and truncates. Ties break on URL so
// the ordering is deterministic regardless of query completion order.
func rankResources(resources []Resource, maxResources int) []Resource {
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].PriorityScore != resources[j].PriorityScore {
			return resources[i].PriorityScore > resources[j].PriorityScore
		}
		return resources[i].URL < resources[j].URL
	})
	if maxResources > 0 && len(resources) > maxResources {
		resources = resources[:maxResources]
	}
	return resources
}

// ResourcesByType filters a resource list down to one source type.
func ResourcesByType(resources []Resource, sourceType SourceType) []Resource {
	var filtered []Resource
	for _, r := range resources {
		if r.SourceType == sourceType {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ClearCache drops all cached discovery runs.
func (e *Engine) ClearCache() {
	e.cacheMu.Lock()
	e.cache = make(map[string][]Resource)
	e.cacheMu.Unlock()
	e.logger.Info("discovery cache cleared")
}
