// Package jobstore persists crawl job rows behind a single Store interface
// with in-memory, Postgres, and SQLite backends selected at construction.
package jobstore

import (
	"context"
	"time"
)

// ResultDoc is the JSON document holding a completed job's payload.
type ResultDoc struct {
	Content               string         `json:"content,omitempty"`
	Title                 string         `json:"title,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	ProcessingTimeSeconds float64        `json:"processing_time,omitempty"`
}

// Row is the persisted representation of a crawl job. JobID, not ID, is the
// lookup key the crawl manager uses; ID is the storage row's own primary key.
type Row struct {
	ID          string
	JobID       string
	URL         string
	Status      string
	Result      *ResultDoc
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time // zero when the job has not reached a terminal state
}

// Store defines the interface for persisting and querying crawl job rows.
type Store interface {
	// Upsert inserts the row or replaces the existing row with the same JobID.
	Upsert(ctx context.Context, row Row) error
	// GetByJobID returns the row for the job, or (nil, nil) when absent.
	GetByJobID(ctx context.Context, jobID string) (*Row, error)
	// List returns up to limit rows ordered by creation time descending,
	// optionally filtered by status (empty string = all).
	List(ctx context.Context, limit int, status string) ([]Row, error)
	Close() error
}
