package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solutionspelichet/library-un/internal/config"
	"github.com/solutionspelichet/library-un/internal/dataprocessing"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/services"
	"github.com/solutionspelichet/library-un/internal/sink"
	"github.com/solutionspelichet/library-un/internal/workbook"
)

// Components are the pieces shared by the HTTP server and the CLI
type Components struct {
	Telemetry *infrastructure.OTelProviders
	Metrics   *infrastructure.PipelineMetrics
	Sink      sink.Sink
	Pipeline  *operations.Pipeline
	Runs      *services.RunService
}

// BuildComponents creates telemetry, the configured sink, the pipeline and
// the run service. reporter receives the progress events of every run.
func BuildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger, reporter operations.ProgressReporter) (*Components, error) {
	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, config.AppVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewPipelineMetrics(telemetry.Meter)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	s, err := sink.FromConfig(ctx, cfg.Sink, logger)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create sink: %w", err)
	}

	pipeline := operations.NewPipeline(operations.PipelineOptions{
		Source:     workbook.NewReader(logger),
		Aggregator: dataprocessing.NewAggregator(logger),
		Sink:       s,
		Reporter:   reporter,
		Metrics:    metrics,
		Tracer:     telemetry.Tracer,
		Logger:     logger,
	})

	logger.InfoContext(ctx, "components ready",
		slog.String("sink", s.Name()),
		slog.Float64("multiplier", cfg.Pipeline.Multiplier),
		slog.Int("max_file_mb", cfg.Pipeline.MaxFileMB),
		slog.Bool("metrics", cfg.Telemetry.MetricsEnabled))

	return &Components{
		Telemetry: telemetry,
		Metrics:   metrics,
		Sink:      s,
		Pipeline:  pipeline,
		Runs:      services.NewRunService(pipeline, s, cfg.Pipeline, cfg.Sink, logger),
	}, nil
}

// Close flushes telemetry
func (c *Components) Close(ctx context.Context) error {
	return c.Telemetry.Shutdown(ctx)
}
