// Package sink delivers reconciled tables to their destination.
//
// Delivery is one-way: a Sink reports transport failures but never
// interprets what the remote side answers.
package sink

import (
	"context"
	"log/slog"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// Sink accepts the payload of a run
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string
	// Send delivers the payload. Only transport failures are errors.
	Send(ctx context.Context, p domain.Payload) error
	// Ping checks that the destination is reachable
	Ping(ctx context.Context) error
}

// Discard drops every payload; used for dry runs
type Discard struct {
	logger *slog.Logger
}

// NewDiscard creates a sink that only logs what it would have sent
func NewDiscard(logger *slog.Logger) *Discard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discard{logger: logger.With(slog.String("component", "sink"), slog.String("sink", "none"))}
}

func (d *Discard) Name() string { return "none" }

func (d *Discard) Send(ctx context.Context, p domain.Payload) error {
	d.logger.InfoContext(ctx, "payload discarded",
		slog.Int("result_rows", len(p.Results.Rows)),
		slog.Int("result_days", p.Results.DayCount()),
		slog.Bool("archive", p.SaveSource))
	return nil
}

func (d *Discard) Ping(context.Context) error { return nil }
