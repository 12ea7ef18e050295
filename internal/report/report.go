package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/internal/discovery"
	"github.com/Dkhotpockets/ollama-notebookllm/internal/pipeline"
)

// Summary contains aggregated metrics about one pipeline run.
type Summary struct {
	RunID         string
	Topic         string
	Discovered    int
	Crawled       int
	Processed     int
	TotalErrors   int
	TotalBytes    int64
	BySourceType  map[discovery.SourceType]int
	TopResources  []ResourceLine
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// ResourceLine is one row in the per-resource breakdown.
type ResourceLine struct {
	URL           string
	SourceType    discovery.SourceType
	PriorityScore float64
	Crawled       bool
	Processed     bool
}

// GenerateSummary aggregates a pipeline result into reportable metrics.
func GenerateSummary(result *pipeline.Result) Summary {
	s := Summary{
		BySourceType: make(map[discovery.SourceType]int),
	}
	if result == nil {
		return s
	}

	s.RunID = result.RunID
	s.Topic = result.Topic
	s.Discovered = result.Discovered
	s.Crawled = result.Crawled
	s.Processed = result.Processed
	s.TotalErrors = len(result.Errors)
	s.StartTime = result.StartTime
	s.EndTime = result.EndTime
	s.Duration = result.EndTime.Sub(result.StartTime)

	for _, r := range result.Resources {
		s.BySourceType[r.SourceType]++
		s.TotalBytes += int64(r.ContentLength)
		s.TopResources = append(s.TopResources, ResourceLine{
			URL:           r.URL,
			SourceType:    r.SourceType,
			PriorityScore: r.PriorityScore,
			Crawled:       r.Crawled,
			Processed:     r.Processed,
		})
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Acquisition Run Summary
-----------------------
Run:           {{.RunID}}
Topic:         {{.Topic}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Discovered:    {{.Discovered}}
Crawled:       {{.Crawled}}
Processed:     {{.Processed}}
Total Bytes:   {{.TotalBytes}}
Errors:        {{.TotalErrors}}

Source Types:
{{- range $type, $count := .BySourceType}}
  {{$type}}: {{$count}}
{{- else}}
  None
{{- end}}

Resources:
{{- range .TopResources}}
  [{{printf "%.2f" .PriorityScore}}] {{.URL}}{{if not .Crawled}} (not crawled){{else if not .Processed}} (not processed){{end}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}
