package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresStore implements jobstore.Store
var _ jobstore.Store = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS crawl_jobs (
	id UUID PRIMARY KEY,
	job_id TEXT UNIQUE NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	result JSONB,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS crawl_jobs_created_at_idx ON crawl_jobs (created_at DESC);
`

// New creates a Postgres-backed jobstore.Store and bootstraps the table.
func New(ctx context.Context, dsn string) (jobstore.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create crawl_jobs table: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Upsert(ctx context.Context, row jobstore.Row) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}

	var resultJSON []byte
	if row.Result != nil {
		var err error
		resultJSON, err = json.Marshal(row.Result)
		if err != nil {
			return fmt.Errorf("marshal job result: %w", err)
		}
	}

	var completedAt *time.Time
	if !row.CompletedAt.IsZero() {
		completedAt = &row.CompletedAt
	}

	query := `
	INSERT INTO crawl_jobs (id, job_id, url, status, result, error, created_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (job_id) DO UPDATE SET
		status = EXCLUDED.status,
		result = EXCLUDED.result,
		error = EXCLUDED.error,
		completed_at = EXCLUDED.completed_at
	`

	_, err := s.pool.Exec(ctx, query,
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

func (s *postgresStore) GetByJobID(ctx context.Context, jobID string) (*jobstore.Row, error) {
	query := `SELECT id, job_id, url, status, result, error, created_at, completed_at FROM crawl_jobs WHERE job_id = $1`

	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query crawl job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query crawl job: %w", err)
		}
		return nil, nil
	}

	row, err := scanRow(rows.Scan)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *postgresStore) List(ctx context.Context, limit int, status string) ([]jobstore.Row, error) {
	query := `SELECT id, job_id, url, status, result, error, created_at, completed_at FROM crawl_jobs`
	args := []any{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRow(scan func(dest ...any) error) (*jobstore.Row, error) {
	var r jobstore.Row
	var resultJSON []byte
	var errText sql.NullString
	var completedAt *time.Time

	err := scan(&r.ID, &r.JobID, &r.URL, &r.Status, &resultJSON, &errText, &r.CreatedAt, &completedAt)
	if err != nil {
		return nil, fmt.Errorf("scan crawl job: %w", err)
	}
	r.Error = errText.String

	if len(resultJSON) > 0 {
		var doc jobstore.ResultDoc
		if err := json.Unmarshal(resultJSON, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
		r.Result = &doc
	}
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}
	return &r, nil
}
