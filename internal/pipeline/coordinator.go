// Package pipeline coordinates the full acquisition run: topic discovery,
// bounded-concurrency crawling, and fan-out of crawled content to the
// configured processing sinks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/crawl"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/discovery"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/jobstore"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Discoverer finds ranked learning resources for a topic.
type Discoverer interface {
	DiscoverResources(ctx context.Context, topic string, maxResources int) ([]discovery.Resource, error)
}

// JobRunner executes one crawl request through to a terminal job.
type JobRunner interface {
	CreateAndExecuteJob(ctx context.Context, req crawl.Request) *crawl.Job
}

var _ Discoverer = (*discovery.Engine)(nil)
var _ JobRunner = (*crawl.Manager)(nil)

// VectorStore indexes crawled content for semantic retrieval.
type VectorStore interface {
	Store(ctx context.Context, doc *jobstore.ResultDoc) error
}

// GraphExtractor mines entities and relations from crawled content.
type GraphExtractor interface {
	Extract(ctx context.Context, doc *jobstore.ResultDoc) error
}

// BasicStore archives the raw crawled document.
type BasicStore interface {
	Save(ctx context.Context, doc *jobstore.ResultDoc) error
}

// CoordinatorConfig provides the crawl parameters applied to every resource.
type CoordinatorConfig struct {
	// PolitenessDelay between request admission and fetch (default 1s)
	PolitenessDelay time.Duration
	// Timeout for each individual crawl (default 30s)
	Timeout time.Duration
	// UserAgent presented while crawling; empty uses the crawler default.
	UserAgent string
}

// ProgressFunc receives run progress notifications. Callbacks run on the
// coordinator's goroutine; a panicking callback is recovered and logged
// without aborting the run.
type ProgressFunc func(p Progress)

// Progress is one notification during a run.
type Progress struct {
	// Status is one of "discovering", "crawling", "completed".
	Status  string
	Message string
	// Current and Total track crawl completion during the crawling phase.
	Current int
	Total   int
	// Result is set only on the final "completed" notification.
	Result *Result
}

// RunOptions tunes one Run invocation.
type RunOptions struct {
	// MaxResources caps the resources taken from discovery (default 10)
	MaxResources int
	// MaxConcurrentCrawls bounds in-flight crawls (default 3)
	MaxConcurrentCrawls int
	// ExtractEntities requests graph extraction for crawled content.
	ExtractEntities bool
	// Progress, when set, receives phase notifications.
	Progress ProgressFunc
}

func (o RunOptions) withDefaults() RunOptions {
	if o.MaxResources <= 0 {
		o.MaxResources = 10
	}
	if o.MaxConcurrentCrawls <= 0 {
		o.MaxConcurrentCrawls = 3
	}
	return o
}

// ResourceOutcome is the per-resource record in a run result.
type ResourceOutcome struct {
	URL           string
	Title         string
	SourceType    discovery.SourceType
	PriorityScore float64
	Crawled       bool
	Processed     bool
	ContentLength int
	Errors        []string
}

// Result aggregates one pipeline run.
type Result struct {
	RunID      string
	Topic      string
	Discovered int
	Crawled    int
	Processed  int
	StartTime  time.Time
	EndTime    time.Time
	Resources  []ResourceOutcome
	Errors     []string
}

// Coordinator drives discovery and crawling and feeds the sinks. Sinks are
// optional: a nil sink is skipped, and a resource counts as processed when
// at least one sink accepted it.
type Coordinator struct {
	cfg        CoordinatorConfig
	discoverer Discoverer
	runner     JobRunner
	vector     VectorStore
	graph      GraphExtractor
	basic      BasicStore
	logger     *slog.Logger
}

// NewCoordinator assembles a coordinator. discoverer and runner are required;
// any of the sinks may be nil.
func NewCoordinator(cfg CoordinatorConfig, discoverer Discoverer, runner JobRunner,
	vector VectorStore, graph GraphExtractor, basic BasicStore, logger *slog.Logger) *Coordinator {
	if cfg.PolitenessDelay == 0 {
		cfg.PolitenessDelay = 1 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:        cfg,
		discoverer: discoverer,
		runner:     runner,
		vector:     vector,
		graph:      graph,
		basic:      basic,
		logger:     logger,
	}
}

type taskOutcome struct {
	index   int
	outcome ResourceOutcome
}

// Run executes the full pipeline for a topic. It always returns a result:
// per-resource failures are folded into the result rather than surfaced as
// errors, and a run that discovers nothing completes immediately.
func (c *Coordinator) Run(ctx context.Context, topic string, opts RunOptions) *Result {
	opts = opts.withDefaults()

	result := &Result{
		RunID:     uuid.NewString(),
		Topic:     topic,
		StartTime: time.Now(),
	}

	c.logger.Info("pipeline run starting", "run_id", result.RunID, "topic", topic)
	c.notify(opts.Progress, Progress{
		Status:  "discovering",
		Message: fmt.Sprintf("discovering resources for %q", topic),
	})

	resources, err := c.discoverer.DiscoverResources(ctx, topic, opts.MaxResources)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("discovery failed: %v", err))
	}
	result.Discovered = len(resources)

	if len(resources) == 0 {
		result.EndTime = time.Now()
		result.Errors = append(result.Errors, fmt.Sprintf("no resources discovered for topic %q", topic))
		c.logger.Warn("no resources discovered", "run_id", result.RunID, "topic", topic)
		c.notify(opts.Progress, Progress{
			Status:  "completed",
			Message: "no resources discovered",
			Result:  result,
		})
		return result
	}

	c.notify(opts.Progress, Progress{
		Status:  "crawling",
		Message: fmt.Sprintf("crawling %d resources", len(resources)),
		Total:   len(resources),
	})

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrentCrawls))
	outcomes := make(chan taskOutcome)

	var wg sync.WaitGroup
	for i, res := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- taskOutcome{index: i, outcome: c.processResource(ctx, sem, res, opts)}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single receive loop owns all counters and the progress callback
	result.Resources = make([]ResourceOutcome, len(resources))
	done := 0
	for t := range outcomes {
		result.Resources[t.index] = t.outcome
		done++
		if t.outcome.Crawled {
			result.Crawled++
		}
		if t.outcome.Processed {
			result.Processed++
		}
		result.Errors = append(result.Errors, t.outcome.Errors...)
		c.notify(opts.Progress, Progress{
			Status:  "crawling",
			Message: t.outcome.URL,
			Current: done,
			Total:   len(resources),
		})
	}

	result.EndTime = time.Now()
	c.logger.Info("pipeline run finished", "run_id", result.RunID,
		"discovered", result.Discovered, "crawled", result.Crawled,
		"processed", result.Processed, "errors", len(result.Errors))
	c.notify(opts.Progress, Progress{
		Status:  "completed",
		Message: fmt.Sprintf("processed %d/%d resources", result.Processed, result.Discovered),
		Current: done,
		Total:   len(resources),
		Result:  result,
	})
	return result
}

// processResource crawls one resource under the concurrency limit and feeds
// the sinks. A panic anywhere in the task is folded into the outcome so one
// bad resource cannot take down the run.
func (c *Coordinator) processResource(ctx context.Context, sem *semaphore.Weighted,
	res discovery.Resource, opts RunOptions) (out ResourceOutcome) {
	out = ResourceOutcome{
		URL:           res.URL,
		Title:         res.Title,
		SourceType:    res.SourceType,
		PriorityScore: res.PriorityScore,
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("resource task panicked", "url", res.URL, "panic", r)
			out.Errors = append(out.Errors, fmt.Sprintf("error processing %s: %v", res.URL, r))
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("error processing %s: %v", res.URL, err))
		return out
	}
	defer sem.Release(1)

	job := c.runner.CreateAndExecuteJob(ctx, crawl.Request{
		URL:              res.URL,
		ExtractEntities:  opts.ExtractEntities,
		PolitenessDelay:  c.cfg.PolitenessDelay,
		MaxPages:         1,
		RespectRobotsTxt: true,
		Timeout:          c.cfg.Timeout,
		UserAgent:        c.cfg.UserAgent,
	})
	if job.Status != crawl.StatusCompleted || job.Result == nil {
		out.Errors = append(out.Errors, fmt.Sprintf("crawl failed for %s: %s", res.URL, job.Error))
		return out
	}

	out.Crawled = true
	out.ContentLength = len(job.Result.Content)

	processed, sinkErrs := c.feedSinks(ctx, job.Result, opts.ExtractEntities)
	out.Processed = processed
	out.Errors = append(out.Errors, sinkErrs...)
	return out
}

// feedSinks offers the document to every configured sink. The document is
// considered processed when any sink accepts it.
func (c *Coordinator) feedSinks(ctx context.Context, doc *jobstore.ResultDoc, extractEntities bool) (bool, []string) {
	var errs []string
	processed := false

	if c.vector != nil {
		if err := c.vector.Store(ctx, doc); err != nil {
			errs = append(errs, fmt.Sprintf("vector storage failed: %v", err))
		} else {
			processed = true
		}
	}
	if c.graph != nil && extractEntities {
		if err := c.graph.Extract(ctx, doc); err != nil {
			errs = append(errs, fmt.Sprintf("graph extraction failed: %v", err))
		} else {
			processed = true
		}
	}
	if c.basic != nil {
		if err := c.basic.Save(ctx, doc); err != nil {
			errs = append(errs, fmt.Sprintf("basic storage failed: %v", err))
		} else {
			processed = true
		}
	}
	return processed, errs
}

// notify invokes the progress callback, recovering a panicking callback so
// observer bugs cannot abort a run.
func (c *Coordinator) notify(fn ProgressFunc, p Progress) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("progress callback panicked", "panic", r)
		}
	}()
	fn(p)
}
