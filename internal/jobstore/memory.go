package jobstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ensure Memory implements Store
var _ Store = (*Memory)(nil)

// Memory is the in-process Store backend. The crawl manager always keeps one
// as its fallback so job state survives a misbehaving persistent backend.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]Row // keyed by JobID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]Row)}
}

func (m *Memory) Upsert(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rows[row.JobID]; ok {
		// The row identity is stable across updates
		row.ID = existing.ID
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	m.rows[row.JobID] = row
	return nil
}

func (m *Memory) GetByJobID(_ context.Context, jobID string) (*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[jobID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) List(_ context.Context, limit int, status string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]Row, 0, len(m.rows))
	for _, row := range m.rows {
		if status != "" && row.Status != status {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *Memory) Close() error {
	return nil
}
