// Package sink provides local processing sinks for crawled documents: an
// NDJSON archive, a CSV export, and a term-extraction index. They back the
// pipeline when no external knowledge-base services are configured.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
)

// Document is the archived form of one crawled result.
type Document struct {
	URL      string         `json:"url"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SavedAt  time.Time      `json:"saved_at"`
}

// Filter selects documents from an archive query.
type Filter struct {
	URL   string
	Since *time.Time
	Limit int
}

// JSONFile archives documents as NDJSON, one document per line.
type JSONFile struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONFile opens (or creates) an NDJSON archive at path.
func NewJSONFile(path string) (*JSONFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open json archive: %w", err)
	}
	return &JSONFile{file: f}, nil
}

// Save appends the document to the archive.
func (s *JSONFile) Save(_ context.Context, doc *jobstore.ResultDoc) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	data, err := json.Marshal(documentFrom(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append document: %w", err)
	}
	return nil
}

// Query reads the archive back, newest first.
func (s *JSONFile) Query(_ context.Context, filter Filter) ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = s.file.Seek(0, io.SeekEnd)
	}()

	var matched []*Document
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var d Document
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("decode archive line: %w", err)
		}
		if filter.URL != "" && d.URL != filter.URL {
			continue
		}
		if filter.Since != nil && d.SavedAt.Before(*filter.Since) {
			continue
		}
		matched = append(matched, &d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	// Newest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Close closes the underlying file.
func (s *JSONFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func documentFrom(doc *jobstore.ResultDoc) Document {
	d := Document{
		Title:    doc.Title,
		Content:  doc.Content,
		Metadata: doc.Metadata,
		SavedAt:  time.Now(),
	}
	if u, ok := doc.Metadata["url"].(string); ok {
		d.URL = u
	}
	return d
}
