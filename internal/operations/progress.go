package operations

import (
	"context"
	"time"
)

// Event types published during a run
const (
	EventStep    = "pipeline:step"
	EventSummary = "pipeline:summary"
	EventLog     = "pipeline:log"
	EventDone    = "pipeline:complete"
)

// ProgressEvent is one entry of a run's live log
type ProgressEvent struct {
	RunID    string         `json:"run_id"`
	Type     string         `json:"type"`
	Step     string         `json:"step,omitempty"`
	Status   string         `json:"status,omitempty"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Time     time.Time      `json:"time"`
}

// ProgressReporter receives the live log of runs. Implementations must not
// block the pipeline.
type ProgressReporter interface {
	Report(ctx context.Context, event ProgressEvent)
}

// ProgressReporterFunc adapts a function to ProgressReporter
type ProgressReporterFunc func(ctx context.Context, event ProgressEvent)

func (f ProgressReporterFunc) Report(ctx context.Context, event ProgressEvent) { f(ctx, event) }

type nopReporter struct{}

func (nopReporter) Report(context.Context, ProgressEvent) {}
