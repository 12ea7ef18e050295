package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebookllm_searches_total",
			Help: "Total number of search provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	DiscoveredResources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notebookllm_discovered_resources",
			Help:    "Resources returned per discovery run",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	CrawlJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebookllm_crawl_jobs_total",
			Help: "Total number of crawl jobs reaching a terminal status",
		},
		[]string{"status"},
	)

	CrawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notebookllm_crawl_duration_seconds",
			Help:    "Duration of crawl job execution in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// RecordSearch updates the search counters for one provider attempt.
func RecordSearch(provider string, results int, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "empty"
	}
	SearchesTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordCrawl updates the crawl counters when a job reaches a terminal status.
func RecordCrawl(status string, duration time.Duration) {
	CrawlJobsTotal.WithLabelValues(status).Inc()
	CrawlDuration.Observe(duration.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
