package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/fingerprint"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(FetcherConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	}, nil)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	return f
}

func TestFetcherExtractsTitleAndMarkdown(t *testing.T) {
	page := `<html><head><title>Go Tutorial</title></head><body>
		<nav>skip this</nav>
		<h1>Getting Started</h1>
		<p>Go is a statically typed language.</p>
		<ul><li>install go</li><li>write code</li></ul>
		<pre>fmt.Println("hi")</pre>
		<script>console.log("noise")</script>
		</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	res, err := newTestFetcher(t).Fetch(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("fetch not successful: %s", res.Error)
	}
	if res.Title != "Go Tutorial" {
		t.Errorf("Title = %q, want %q", res.Title, "Go Tutorial")
	}
	for _, want := range []string{
		"# Getting Started",
		"Go is a statically typed language.",
		"- install go",
		"```\nfmt.Println(\"hi\")\n```",
	} {
		if !strings.Contains(res.Markdown, want) {
			t.Errorf("markdown missing %q:\n%s", want, res.Markdown)
		}
	}
	for _, reject := range []string{"skip this", "console.log"} {
		if strings.Contains(res.Markdown, reject) {
			t.Errorf("markdown should not contain %q", reject)
		}
	}
}

func TestFetcherNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	res, err := newTestFetcher(t).Fetch(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false for 410 response")
	}
	if !strings.Contains(res.Error, "410") {
		t.Errorf("Error = %q, want it to mention the status code", res.Error)
	}
}

func TestFetcherUnreachableHost(t *testing.T) {
	res, err := newTestFetcher(t).Fetch(context.Background(), "http://127.0.0.1:1/", FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false for unreachable host")
	}
	if res.Error == "" {
		t.Error("expected a non-empty Error")
	}
}

func TestFetcherSendsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body><p>ok</p></body></html>"))
	}))
	defer server.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), server.URL, FetchOptions{UserAgent: "custom-agent/2.0"})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got != "custom-agent/2.0" {
		t.Errorf("User-Agent = %q, want %q", got, "custom-agent/2.0")
	}
}

func TestFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher(t).Fetch(ctx, server.URL, FetchOptions{})
	if err == nil {
		t.Fatal("expected a deadline error")
	}
}
