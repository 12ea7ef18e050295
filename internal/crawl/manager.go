package crawl

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/metrics"
	"github.com/Dkhotpockets/ollama-notebookllm/pkg/ratelimit"
)

// ManagerConfig configures the crawl job manager.
type ManagerConfig struct {
	// MinCrawlDelay is the per-host admission interval enforced before
	// each job executes. Zero uses ratelimit.DefaultMinDelay.
	MinCrawlDelay time.Duration

	// StoreRetries is how many attempts are made against the persistent
	// store before giving up. Zero means 3.
	StoreRetries int

	// StoreBackoff is the base wait between persistence attempts; the
	// actual wait grows linearly with the attempt number. Zero means 500ms.
	StoreBackoff time.Duration
}

// Manager owns the crawl job lifecycle: creation, admission, execution,
// and persistence. Jobs always land in the in-memory registry; a persistent
// store is optional and best-effort.
type Manager struct {
	cfg     ManagerConfig
	crawler Crawler
	store   jobstore.Store
	local   *jobstore.Memory
	gate    *ratelimit.HostGate
	auditor *RobotsAuditor
	logger  *slog.Logger
}

// NewManager initializes a manager. crawler may be nil, in which case every
// job fails with a configuration error. store may be nil for memory-only use.
func NewManager(cfg ManagerConfig, crawler Crawler, store jobstore.Store, auditor *RobotsAuditor, logger *slog.Logger) *Manager {
	if cfg.StoreRetries == 0 {
		cfg.StoreRetries = 3
	}
	if cfg.StoreBackoff == 0 {
		cfg.StoreBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:     cfg,
		crawler: crawler,
		store:   store,
		local:   jobstore.NewMemory(),
		gate:    ratelimit.NewHostGate(cfg.MinCrawlDelay, logger),
		auditor: auditor,
		logger:  logger,
	}
}

// generateJobID derives a short stable identifier from the URL and the
// creation instant. Collisions are possible in principle but require the
// same URL at the same nanosecond.
func generateJobID(url string) string {
	sum := md5.Sum([]byte(url + "_" + time.Now().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

// CreateJob registers a new pending job for the request and persists it.
func (m *Manager) CreateJob(ctx context.Context, req Request) *Job {
	req = req.normalized()
	meta := make(map[string]any, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}
	job := &Job{
		ID:        generateJobID(req.URL),
		Request:   req,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		Metadata:  meta,
	}
	m.storeJob(ctx, job)
	m.logger.Info("crawl job created", "job_id", job.ID, "url", req.URL)
	return job
}

// ExecuteJob runs the job to a terminal state. The returned job is the same
// pointer, mutated in place and persisted at each transition.
func (m *Manager) ExecuteJob(ctx context.Context, job *Job) *Job {
	if m.crawler == nil {
		return m.fail(ctx, job, "no crawler configured")
	}

	if !m.gate.CanCrawl(job.Request.URL) {
		return m.fail(ctx, job, fmt.Sprintf("rate limited: host crawled within the last %s", m.gate.MinDelay()))
	}

	job.Status = StatusRunning
	job.StartedAt = time.Now()
	m.storeJob(ctx, job)

	if job.Request.RespectRobotsTxt && m.auditor != nil {
		allowed, err := m.auditor.Allowed(ctx, job.Request.URL, job.Request.UserAgent)
		if err != nil {
			m.logger.Warn("robots.txt check failed, proceeding", "url", job.Request.URL, "err", err)
		} else if !allowed {
			return m.fail(ctx, job, "disallowed by robots.txt")
		}
	}

	if job.Request.PolitenessDelay > 0 {
		select {
		case <-time.After(job.Request.PolitenessDelay):
		case <-ctx.Done():
			return m.fail(ctx, job, fmt.Sprintf("crawl error: %v", ctx.Err()))
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, job.Request.Timeout)
	defer cancel()

	res, err := m.crawler.Fetch(fetchCtx, job.Request.URL, FetchOptions{
		Timeout:     job.Request.Timeout,
		UserAgent:   job.Request.UserAgent,
		MaxPages:    job.Request.MaxPages,
		FollowLinks: job.Request.FollowLinks,
	})
	if err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			return m.fail(ctx, job, fmt.Sprintf("crawl timeout after %s", job.Request.Timeout))
		}
		return m.fail(ctx, job, fmt.Sprintf("crawl error: %v", err))
	}
	if !res.Success {
		return m.fail(ctx, job, "crawl failed: "+res.Error)
	}

	content := res.Markdown
	if content == "" {
		content = res.HTML
	}
	title := res.Title
	if title == "" {
		title = extractTitleFromContent(content)
	}

	now := time.Now()
	job.Status = StatusCompleted
	job.CompletedAt = now

	// Request metadata carries through to the result; the fixed keys win on collision.
	resultMeta := make(map[string]any, len(job.Request.Metadata)+4)
	for k, v := range job.Request.Metadata {
		resultMeta[k] = v
	}
	resultMeta["title"] = title
	resultMeta["url"] = job.Request.URL
	resultMeta["crawled_at"] = now.Format(time.RFC3339)
	resultMeta["content_length"] = len(content)

	job.Result = &jobstore.ResultDoc{
		Content:               content,
		Title:                 title,
		Metadata:              resultMeta,
		ProcessingTimeSeconds: now.Sub(job.StartedAt).Seconds(),
	}
	m.storeJob(ctx, job)
	metrics.RecordCrawl(string(StatusCompleted), now.Sub(job.StartedAt))
	m.logger.Info("crawl job completed", "job_id", job.ID, "url", job.Request.URL,
		"content_length", len(content))
	return job
}

// CreateAndExecuteJob is the common single-shot path.
func (m *Manager) CreateAndExecuteJob(ctx context.Context, req Request) *Job {
	return m.ExecuteJob(ctx, m.CreateJob(ctx, req))
}

// GetJob looks a job up by ID, preferring the persistent store.
func (m *Manager) GetJob(ctx context.Context, jobID string) *Job {
	if m.store != nil {
		row, err := m.store.GetByJobID(ctx, jobID)
		if err != nil {
			m.logger.Warn("store lookup failed, falling back to memory", "job_id", jobID, "err", err)
		} else if row != nil {
			return jobFromRow(*row)
		}
	}
	row, err := m.local.GetByJobID(ctx, jobID)
	if err != nil || row == nil {
		return nil
	}
	return jobFromRow(*row)
}

// ListJobs returns up to limit jobs, newest first, optionally filtered by
// status. It reads from the persistent store when available.
func (m *Manager) ListJobs(ctx context.Context, limit int, status Status) []*Job {
	var rows []jobstore.Row
	var err error
	if m.store != nil {
		rows, err = m.store.List(ctx, limit, string(status))
		if err != nil {
			m.logger.Warn("store list failed, falling back to memory", "err", err)
			rows = nil
		}
	}
	if rows == nil {
		rows, err = m.local.List(ctx, limit, string(status))
		if err != nil {
			return nil
		}
	}
	jobs := make([]*Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, jobFromRow(r))
	}
	return jobs
}

func (m *Manager) fail(ctx context.Context, job *Job, msg string) *Job {
	job.Status = StatusFailed
	job.Error = msg
	if job.Metadata == nil {
		job.Metadata = map[string]any{}
	}
	job.Metadata["error"] = msg
	job.CompletedAt = time.Now()
	m.storeJob(ctx, job)

	started := job.StartedAt
	if started.IsZero() {
		started = job.CreatedAt
	}
	metrics.RecordCrawl(string(StatusFailed), job.CompletedAt.Sub(started))
	m.logger.Warn("crawl job failed", "job_id", job.ID, "url", job.Request.URL, "error", msg)
	return job
}

// storeJob writes the job to the in-memory registry and, when configured,
// to the persistent store with linear-backoff retries. Persistence failures
// never fail the job.
func (m *Manager) storeJob(ctx context.Context, job *Job) bool {
	row := rowFromJob(job)

	if err := m.local.Upsert(ctx, row); err != nil {
		m.logger.Warn("memory store write failed", "job_id", job.ID, "err", err)
	}

	if m.store == nil {
		return true
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.StoreRetries; attempt++ {
		if lastErr = m.store.Upsert(ctx, row); lastErr == nil {
			return true
		}
		m.logger.Warn("persistent store write failed", "job_id", job.ID,
			"attempt", attempt, "err", lastErr)
		if attempt < m.cfg.StoreRetries {
			select {
			case <-time.After(m.cfg.StoreBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return false
			}
		}
	}
	m.logger.Error("persistent store write abandoned", "job_id", job.ID, "err", lastErr)
	return false
}

func rowFromJob(job *Job) jobstore.Row {
	return jobstore.Row{
		JobID:       job.ID,
		URL:         job.Request.URL,
		Status:      string(job.Status),
		Result:      job.Result,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

func jobFromRow(row jobstore.Row) *Job {
	return &Job{
		ID:          row.JobID,
		Request:     Request{URL: row.URL},
		Status:      Status(row.Status),
		Result:      row.Result,
		Error:       row.Error,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
	}
}

// extractTitleFromContent recovers a plausible title from crawled text when
// the page itself had none: the first markdown heading in the first ten
// lines, else the first short non-heading line, else "Untitled".
func extractTitleFromContent(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if i >= 10 {
			break
		}
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && len(line) < 100 {
			return line
		}
	}
	return "Untitled"
}
