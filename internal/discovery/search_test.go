package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeProvider is a scripted search backend for chain tests.
type fakeProvider struct {
	name    string
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	f.calls++
	return f.results, f.err
}

func someResults(n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{Title: "t", URL: "https://example.com/", Description: "d"}
	}
	return out
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	first := &fakeProvider{name: "first", results: someResults(3)}
	second := &fakeProvider{name: "second", results: someResults(5)}
	chain := NewChain(nil, first, second)

	results := chain.Search(context.Background(), "query", 10)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if second.calls != 0 {
		t.Error("second provider should not be consulted when the first succeeds")
	}
}

func TestChainFallsBackOnError(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second", results: someResults(2)}
	chain := NewChain(nil, first, second)

	results := chain.Search(context.Background(), "query", 10)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestChainFallsBackOnEmpty(t *testing.T) {
	first := &fakeProvider{name: "first"}
	second := &fakeProvider{name: "second", results: someResults(1)}
	chain := NewChain(nil, first, second)

	results := chain.Search(context.Background(), "query", 10)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestChainAllFail(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second"}
	chain := NewChain(nil, first, second)

	if results := chain.Search(context.Background(), "query", 10); len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestChainTruncates(t *testing.T) {
	chain := NewChain(nil, &fakeProvider{name: "p", results: someResults(8)})

	if results := chain.Search(context.Background(), "query", 3); len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestDuckDuckGoHTMLParse(t *testing.T) {
	page := `<html><body>
		<div class="result">
			<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fdocs.python.org%2F3%2F&rut=x">Python Docs</a>
			<a class="result__snippet">The official Python documentation.</a>
		</div>
		<div class="result">
			<a class="result__a" href="https://realpython.com/">Real Python</a>
			<a class="result__snippet">Python tutorials.</a>
		</div>
		<div class="result">
			<a class="result__a" href="/internal/ad">Sponsored</a>
		</div>
		</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			t.Error("missing q parameter")
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	ddg, err := NewDuckDuckGoHTML()
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	ddg.baseURL = server.URL + "/"

	results, err := ddg.Search(context.Background(), "python docs", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].URL != "https://docs.python.org/3/" {
		t.Errorf("redirect not decoded: %q", results[0].URL)
	}
	if results[0].Title != "Python Docs" {
		t.Errorf("Title = %q", results[0].Title)
	}
	if results[0].Description != "The official Python documentation." {
		t.Errorf("Description = %q", results[0].Description)
	}
	if results[1].URL != "https://realpython.com/" {
		t.Errorf("plain href mangled: %q", results[1].URL)
	}
}

func TestDuckDuckGoHTMLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	ddg, err := NewDuckDuckGoHTML()
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	ddg.baseURL = server.URL + "/"

	if _, err := ddg.Search(context.Background(), "anything", 10); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestBraveProviderParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("X-Subscription-Token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"Go Docs","url":"https://go.dev/doc/","description":"Official Go documentation"},
			{"title":"Go Tour","url":"https://go.dev/tour/","description":"Interactive tour"}
		]}}`))
	}))
	defer server.Close()

	brave, err := NewBraveProvider("test-key")
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	brave.baseURL = server.URL

	results, err := brave.Search(context.Background(), "golang docs", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go Docs" || results[0].URL != "https://go.dev/doc/" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestBraveProviderRequiresKey(t *testing.T) {
	if _, err := NewBraveProvider(""); err == nil {
		t.Error("expected error for empty api key")
	}
}

func TestDirectoryProviderCuratedTopic(t *testing.T) {
	dir := NewDirectoryProvider()

	results, err := dir.Search(context.Background(), "python tutorial beginner guide", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected curated python entries")
	}
	found := false
	for _, r := range results {
		if r.URL == "https://docs.python.org/3/" {
			found = true
		}
	}
	if !found {
		t.Errorf("curated python docs entry missing: %+v", results)
	}
}

func TestDirectoryProviderFallback(t *testing.T) {
	dir := NewDirectoryProvider()

	results, err := dir.Search(context.Background(), "erlang tutorial", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 generic entries", len(results))
	}
	for _, r := range results {
		if r.URL == "" || r.Title == "" {
			t.Errorf("incomplete generic entry: %+v", r)
		}
	}
}

func TestDirectoryProviderFallbackMultibyteTopic(t *testing.T) {
	dir := NewDirectoryProvider()

	results, err := dir.Search(context.Background(), "émacs tutorial", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 generic entries", len(results))
	}
	for _, r := range results {
		if !utf8.ValidString(r.Title) {
			t.Errorf("title is not valid UTF-8: %q", r.Title)
		}
	}
	if !strings.HasPrefix(results[0].Title, "Émacs") {
		t.Errorf("Title = %q, want first rune upcased", results[0].Title)
	}
}
