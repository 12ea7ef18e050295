package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/analyzer"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
)

// TermExtractor mines configured topic terms from crawled documents and keeps
// the matches in memory, indexed by source URL. It serves as the local entity
// extraction sink.
type TermExtractor struct {
	terms []string

	mu      sync.RWMutex
	matches map[string][]analyzer.TermMatch
}

// NewTermExtractor creates an extractor for the given terms.
func NewTermExtractor(terms []string) *TermExtractor {
	return &TermExtractor{
		terms:   terms,
		matches: make(map[string][]analyzer.TermMatch),
	}
}

// Extract scans the document for the configured terms and records any hits.
func (t *TermExtractor) Extract(_ context.Context, doc *jobstore.ResultDoc) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	d := documentFrom(doc)
	found := analyzer.FindTermMatches(d.Content, d.URL, t.terms)
	if len(found) == 0 {
		return nil
	}

	t.mu.Lock()
	t.matches[d.URL] = found
	t.mu.Unlock()
	return nil
}

// Matches returns the term matches recorded for a URL.
func (t *TermExtractor) Matches(url string) []analyzer.TermMatch {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.matches[url]
}

// AllMatches returns a copy of the whole index.
func (t *TermExtractor) AllMatches() map[string][]analyzer.TermMatch {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]analyzer.TermMatch, len(t.matches))
	for url, m := range t.matches {
		out[url] = m
	}
	return out
}
