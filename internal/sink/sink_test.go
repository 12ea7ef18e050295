package sink

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/pipeline"
)

// The sinks must satisfy the pipeline's sink contracts.
var (
	_ pipeline.BasicStore     = (*JSONFile)(nil)
	_ pipeline.BasicStore     = (*CSVFile)(nil)
	_ pipeline.GraphExtractor = (*TermExtractor)(nil)
)

func sampleDoc(url string) *jobstore.ResultDoc {
	return &jobstore.ResultDoc{
		Content: "# Docker\n\nDocker is a container runtime. Containers are lightweight.",
		Title:   "Docker Guide",
		Metadata: map[string]any{
			"url": url,
		},
	}
}

func TestJSONFileSaveAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.ndjson")
	archive, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	defer archive.Close()

	ctx := context.Background()
	if err := archive.Save(ctx, sampleDoc("https://a.example/")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := archive.Save(ctx, sampleDoc("https://b.example/")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	docs, err := archive.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	// Newest first
	if docs[0].URL != "https://b.example/" {
		t.Errorf("first document = %q, want the most recent", docs[0].URL)
	}
	if docs[0].Title != "Docker Guide" {
		t.Errorf("Title = %q", docs[0].Title)
	}

	byURL, err := archive.Query(ctx, Filter{URL: "https://a.example/"})
	if err != nil {
		t.Fatalf("Query with url filter: %v", err)
	}
	if len(byURL) != 1 || byURL[0].URL != "https://a.example/" {
		t.Errorf("url filter returned %+v", byURL)
	}

	limited, err := archive.Query(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit returned %d documents", len(limited))
	}
}

func TestJSONFileSaveThenQueryThenSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.ndjson")
	archive, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	defer archive.Close()

	ctx := context.Background()
	if err := archive.Save(ctx, sampleDoc("https://a.example/")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := archive.Query(ctx, Filter{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	// A save after a query must append, not overwrite mid-file
	if err := archive.Save(ctx, sampleDoc("https://b.example/")); err != nil {
		t.Fatalf("Save after Query: %v", err)
	}

	docs, err := archive.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("final Query: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d documents, want 2", len(docs))
	}
}

func TestCSVFileSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	export, err := NewCSVFile(path)
	if err != nil {
		t.Fatalf("NewCSVFile: %v", err)
	}

	if err := export.Save(context.Background(), sampleDoc("https://a.example/")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := export.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "saved_at" {
		t.Errorf("header = %v", rows[0])
	}
	row := rows[1]
	if row[1] != "https://a.example/" || row[2] != "Docker Guide" {
		t.Errorf("row = %v", row)
	}
	content, err := base64.StdEncoding.DecodeString(row[4])
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if string(content) != sampleDoc("").Content {
		t.Errorf("content round trip failed: %q", content)
	}
}

func TestTermExtractor(t *testing.T) {
	extractor := NewTermExtractor([]string{"docker", "kubernetes"})

	if err := extractor.Extract(context.Background(), sampleDoc("https://a.example/")); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	matches := extractor.Matches("https://a.example/")
	if len(matches) != 1 {
		t.Fatalf("got %d term matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].Term != "docker" || matches[0].Count < 2 {
		t.Errorf("match = %+v", matches[0])
	}

	if got := extractor.Matches("https://unknown.example/"); got != nil {
		t.Errorf("unknown url returned %+v", got)
	}
	if all := extractor.AllMatches(); len(all) != 1 {
		t.Errorf("AllMatches = %+v", all)
	}
}
