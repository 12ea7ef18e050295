// Package crawl manages crawl jobs: creation, execution against a crawler
// collaborator with rate-limit and robots.txt gating, and persisted job state.
package crawl

import (
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/useragent"
)

// Status is a crawl job's position in its state machine:
// pending -> running -> {completed | failed | cancelled}.
// Terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Request is the immutable input for one crawl attempt.
type Request struct {
	URL              string
	ExtractEntities  bool
	PolitenessDelay  time.Duration
	MaxPages         int
	FollowLinks      bool
	RespectRobotsTxt bool
	Timeout          time.Duration
	UserAgent        string
	Metadata         map[string]any
}

// NewRequest builds a request for the URL with the standard defaults:
// 1s politeness delay, single page, robots.txt respected, 30s timeout.
func NewRequest(url string) Request {
	return Request{
		URL:              url,
		ExtractEntities:  true,
		PolitenessDelay:  1 * time.Second,
		MaxPages:         1,
		RespectRobotsTxt: true,
		Timeout:          30 * time.Second,
		UserAgent:        useragent.DefaultCrawler,
	}
}

// normalized fills zero-valued fields a caller left unset. Booleans are taken
// as given; use NewRequest for the opt-out defaults.
func (r Request) normalized() Request {
	if r.Timeout <= 0 {
		r.Timeout = 30 * time.Second
	}
	if r.MaxPages <= 0 {
		r.MaxPages = 1
	}
	if r.UserAgent == "" {
		r.UserAgent = useragent.DefaultCrawler
	}
	return r
}

// Job is the record of one crawl, created and mutated by the Manager.
//
// Invariants: CompletedAt is set if and only if the status is terminal, and
// Result is non-nil only on completed jobs.
type Job struct {
	ID          string
	Request     Request
	Status      Status
	Result      *jobstore.ResultDoc
	Error       string
	Metadata    map[string]any
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}
