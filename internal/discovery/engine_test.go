package discovery

import (
	"context"
	"sync"
	"testing"
)

// countingProvider serves a fixed result list and counts invocations.
type countingProvider struct {
	mu      sync.Mutex
	results []SearchResult
	calls   int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.results, nil
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestEngine(cfg EngineConfig, p Provider) *Engine {
	return NewEngine(cfg, NewChain(nil, p), nil)
}

func TestEngineRanksByScore(t *testing.T) {
	provider := &countingProvider{results: []SearchResult{
		{Title: "Random Page", URL: "https://random.example/python-notes", Description: ""},
		{Title: "Python Tutorial", URL: "https://docs.python.org/3/tutorial/", Description: "official tutorial"},
		{Title: "A Post", URL: "https://medium.com/@a/post", Description: ""},
	}}
	engine := newTestEngine(EngineConfig{}, provider)

	resources, err := engine.DiscoverResources(context.Background(), "python", 10)
	if err != nil {
		t.Fatalf("DiscoverResources: %v", err)
	}
	if len(resources) != 3 {
		t.Fatalf("got %d resources, want 3", len(resources))
	}
	if resources[0].URL != "https://docs.python.org/3/tutorial/" {
		t.Errorf("top resource = %q, want the official docs entry", resources[0].URL)
	}
	for i := 1; i < len(resources); i++ {
		if resources[i-1].PriorityScore < resources[i].PriorityScore {
			t.Errorf("resources not sorted descending at index %d", i)
		}
	}
	if resources[0].SourceType != SourceOfficialDocs {
		t.Errorf("SourceType = %q, want %q", resources[0].SourceType, SourceOfficialDocs)
	}
}

func TestEngineDeduplicatesKeepingHighest(t *testing.T) {
	// Same URL twice: the keyword-rich variant scores higher and must win
	provider := &countingProvider{results: []SearchResult{
		{Title: "x", URL: "https://example.com/page"},
		{Title: "Complete Beginner Tutorial Guide", URL: "https://example.com/page"},
	}}
	engine := newTestEngine(EngineConfig{}, provider)

	resources, err := engine.DiscoverResources(context.Background(), "topic", 10)
	if err != nil {
		t.Fatalf("DiscoverResources: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(resources))
	}
	if resources[0].Title != "Complete Beginner Tutorial Guide" {
		t.Errorf("kept %q, want the higher-scoring duplicate", resources[0].Title)
	}
}

func TestEngineTruncatesToMaxResources(t *testing.T) {
	provider := &countingProvider{results: []SearchResult{
		{Title: "a", URL: "https://a.example/"},
		{Title: "b", URL: "https://b.example/"},
		{Title: "c", URL: "https://c.example/"},
		{Title: "d", URL: "https://d.example/"},
	}}
	engine := newTestEngine(EngineConfig{}, provider)

	resources, err := engine.DiscoverResources(context.Background(), "topic", 2)
	if err != nil {
		t.Fatalf("DiscoverResources: %v", err)
	}
	if len(resources) != 2 {
		t.Errorf("got %d resources, want 2", len(resources))
	}
}

func TestEngineSkipsIncompleteHits(t *testing.T) {
	provider := &countingProvider{results: []SearchResult{
		{Title: "", URL: "https://no-title.example/"},
		{Title: "No URL", URL: ""},
		{Title: "Good", URL: "https://good.example/"},
	}}
	engine := newTestEngine(EngineConfig{}, provider)

	resources, err := engine.DiscoverResources(context.Background(), "topic", 10)
	if err != nil {
		t.Fatalf("DiscoverResources: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(resources))
	}
	if resources[0].URL != "https://good.example/" {
		t.Errorf("kept %q", resources[0].URL)
	}
}

func TestEngineCache(t *testing.T) {
	provider := &countingProvider{results: []SearchResult{
		{Title: "Page", URL: "https://example.com/"},
	}}
	engine := newTestEngine(EngineConfig{EnableCache: true}, provider)

	if _, err := engine.DiscoverResources(context.Background(), "topic", 5); err != nil {
		t.Fatalf("first run: %v", err)
	}
	after := provider.callCount()

	if _, err := engine.DiscoverResources(context.Background(), "topic", 5); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if provider.callCount() != after {
		t.Error("cached run should not consult providers")
	}

	// Different maxResources is a different cache key
	if _, err := engine.DiscoverResources(context.Background(), "topic", 3); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if provider.callCount() == after {
		t.Error("different maxResources should miss the cache")
	}

	engine.ClearCache()
	before := provider.callCount()
	if _, err := engine.DiscoverResources(context.Background(), "topic", 5); err != nil {
		t.Fatalf("post-clear run: %v", err)
	}
	if provider.callCount() == before {
		t.Error("cleared cache should consult providers again")
	}
}

func TestEngineCancelledContext(t *testing.T) {
	engine := newTestEngine(EngineConfig{}, &countingProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.DiscoverResources(ctx, "topic", 5); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSearchQueries(t *testing.T) {
	queries := searchQueries("docker")
	if len(queries) != 6 {
		t.Fatalf("got %d query variants, want 6", len(queries))
	}
	seen := make(map[string]bool)
	for _, q := range queries {
		if seen[q] {
			t.Errorf("duplicate query variant %q", q)
		}
		seen[q] = true
	}
}

func TestResourcesByType(t *testing.T) {
	resources := []Resource{
		{URL: "https://docs.python.org/3/", SourceType: SourceOfficialDocs},
		{URL: "https://github.com/x/y", SourceType: SourceGitHub},
		{URL: "https://kubernetes.io/docs/", SourceType: SourceOfficialDocs},
	}
	docs := ResourcesByType(resources, SourceOfficialDocs)
	if len(docs) != 2 {
		t.Errorf("got %d official docs resources, want 2", len(docs))
	}
	if got := ResourcesByType(resources, SourceBlog); len(got) != 0 {
		t.Errorf("got %d blog resources, want 0", len(got))
	}
}
