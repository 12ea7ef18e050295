package sink

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
)

// csvHeaders defines the CSV column order.
var csvHeaders = []string{
	"saved_at",
	"url",
	"title",
	"content_length",
	"content_base64",
	"metadata_json",
}

// CSVFile exports documents to a CSV file, one row per document. Content is
// base64-encoded so markdown with embedded commas and newlines survives.
type CSVFile struct {
	mu   sync.Mutex
	file *os.File
}

// NewCSVFile opens (or creates) a CSV export at path, writing the header row
// when the file is empty.
func NewCSVFile(path string) (*CSVFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv export: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv export: %w", err)
	}
	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(csvHeaders); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVFile{file: f}, nil
}

// Save appends the document as one CSV row.
func (s *CSVFile) Save(_ context.Context, doc *jobstore.ResultDoc) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	d := documentFrom(doc)
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	record := []string{
		d.SavedAt.Format(time.RFC3339),
		d.URL,
		d.Title,
		strconv.Itoa(len(d.Content)),
		base64.StdEncoding.EncodeToString([]byte(d.Content)),
		string(metaJSON),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := csv.NewWriter(s.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *CSVFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
