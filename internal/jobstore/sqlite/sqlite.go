package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ensure sqliteStore implements jobstore.Store
var _ jobstore.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS crawl_jobs (
	id TEXT PRIMARY KEY,
	job_id TEXT UNIQUE NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	result TEXT,
	error TEXT,
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);
`

// New creates a SQLite-backed jobstore.Store, for running without Postgres.
func New(dsn string) (jobstore.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create crawl_jobs table: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Upsert(ctx context.Context, row jobstore.Row) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}

	var resultJSON any
	if row.Result != nil {
		data, err := json.Marshal(row.Result)
		if err != nil {
			return fmt.Errorf("marshal job result: %w", err)
		}
		resultJSON = string(data)
	}

	var completedAt any
	if !row.CompletedAt.IsZero() {
		completedAt = row.CompletedAt
	}

	query := `
	INSERT INTO crawl_jobs (id, job_id, url, status, result, error, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (job_id) DO UPDATE SET
		status = excluded.status,
		result = excluded.result,
		error = excluded.error,
		completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		row.ID,
		row.JobID,
		row.URL,
		row.Status,
		resultJSON,
		row.Error,
		row.CreatedAt,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert crawl job: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetByJobID(ctx context.Context, jobID string) (*jobstore.Row, error) {
	query := `SELECT id, job_id, url, status, result, error, created_at, completed_at FROM crawl_jobs WHERE job_id = ?`

	row, err := scanRow(s.db.QueryRowContext(ctx, query, jobID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *sqliteStore) List(ctx context.Context, limit int, status string) ([]jobstore.Row, error) {
	query := `SELECT id, job_id, url, status, result, error, created_at, completed_at FROM crawl_jobs`
	args := []any{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}
	defer rows.Close()

	var results []jobstore.Row
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}
	return results, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func scanRow(scan func(dest ...any) error) (*jobstore.Row, error) {
	var r jobstore.Row
	var resultJSON sql.NullString
	var errText sql.NullString
	var completedAt sql.NullTime

	err := scan(&r.ID, &r.JobID, &r.URL, &r.Status, &resultJSON, &errText, &r.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan crawl job: %w", err)
	}

	if resultJSON.Valid && resultJSON.String != "" {
		var doc jobstore.ResultDoc
		if err := json.Unmarshal([]byte(resultJSON.String), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
		r.Result = &doc
	}
	r.Error = errText.String
	if completedAt.Valid {
		r.CompletedAt = completedAt.Time
	}
	return &r, nil
}
