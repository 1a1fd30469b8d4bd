package operations

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/solutionspelichet/library-un/internal/config"
	"github.com/solutionspelichet/library-un/internal/dataprocessing"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/sink"
	"github.com/solutionspelichet/library-un/internal/workbook"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// Source labels
const (
	SourceTracking   = "tracking"
	SourceExtraction = "extraction"
)

// SourceInput is one uploaded workbook and its column mapping
type SourceInput struct {
	Name    string
	MIME    string
	Data    []byte
	Columns domain.ColumnMapping
}

// RunRequest describes one reconciliation
type RunRequest struct {
	Tracking   SourceInput
	Extraction SourceInput
	Multiplier float64
	Secret     string
	SheetID    string
	// ArchiveTracking attaches the tracking workbook to the payload
	ArchiveTracking bool
	// DryRun stops before the sink handoff
	DryRun bool
}

// SourceReport describes how one source was read and aggregated
type SourceReport struct {
	Label        string                    `json:"label"`
	FileName     string                    `json:"file_name"`
	Date1904     bool                      `json:"date1904"`
	Summary      domain.AggregationSummary `json:"summary"`
	LastDay      string                    `json:"last_day,omitempty"`
	LastDayTotal float64                   `json:"last_day_total"`
}

// RunStatus is the outcome of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunReport is everything a run produced, returned even when it fails
type RunReport struct {
	RunID      string       `json:"run_id"`
	Status     RunStatus    `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Tracking   SourceReport `json:"tracking"`
	Extraction SourceReport `json:"extraction"`
	Results    domain.Table `json:"resultats"`
	Scaled     domain.Table `json:"ml"`
	Multiplier float64      `json:"multiplier"`
	Steps      []StepState  `json:"steps"`
	Sink       string       `json:"sink"`
	Delivered  bool         `json:"delivered"`
	DryRun     bool         `json:"dry_run"`
	Error      string       `json:"error,omitempty"`
	ErrorType  string       `json:"error_type,omitempty"`
}

// PipelineOptions wires the pipeline's collaborators. Source, Aggregator and
// Sink are required.
type PipelineOptions struct {
	Source     workbook.Source
	Aggregator *dataprocessing.Aggregator
	Sink       sink.Sink
	Reporter   ProgressReporter
	Metrics    *infrastructure.PipelineMetrics
	Tracer     trace.Tracer
	Logger     *slog.Logger
	// NewRunID overrides run id generation
	NewRunID func() string
	// Now overrides the clock
	Now func() time.Time
}

// Pipeline runs reconciliations. It holds no state between runs and may be
// shared.
type Pipeline struct {
	source     workbook.Source
	aggregator *dataprocessing.Aggregator
	sink       sink.Sink
	reporter   ProgressReporter
	metrics    *infrastructure.PipelineMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
	newRunID   func() string
	now        func() time.Time
}

// NewPipeline creates a pipeline
func NewPipeline(opts PipelineOptions) *Pipeline {
	p := &Pipeline{
		source:     opts.Source,
		aggregator: opts.Aggregator,
		sink:       opts.Sink,
		reporter:   opts.Reporter,
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
		logger:     opts.Logger,
		newRunID:   opts.NewRunID,
		now:        opts.Now,
	}
	if p.reporter == nil {
		p.reporter = nopReporter{}
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	if p.aggregator == nil {
		p.aggregator = dataprocessing.NewAggregator(p.logger)
	}
	if p.newRunID == nil {
		p.newRunID = infrastructure.GenerateTraceID
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// run carries the per-run state shared by the steps
type run struct {
	p       *Pipeline
	id      string
	steps   *stepTracker
	report  *RunReport
	results [2]dataprocessing.Result
}

// Run executes one reconciliation. The returned report is never nil; when
// err is non-nil it describes how far the run got.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	id := p.newRunID()
	if infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, id)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", id),
		attribute.Bool("run.dry_run", req.DryRun)))
	defer span.End()

	r := &run{
		p:     p,
		id:    id,
		steps: newStepTracker(),
		report: &RunReport{
			RunID:      id,
			Status:     RunStatusRunning,
			StartedAt:  p.now(),
			Multiplier: req.Multiplier,
			Sink:       p.sink.Name(),
			DryRun:     req.DryRun,
			Tracking:   SourceReport{Label: SourceTracking, FileName: req.Tracking.Name},
			Extraction: SourceReport{Label: SourceExtraction, FileName: req.Extraction.Name},
			Results:    domain.EmptyTable(),
			Scaled:     domain.EmptyTable(),
		},
	}

	p.logger.InfoContext(ctx, "run started",
		slog.String("run_id", id),
		slog.String("tracking", req.Tracking.Name),
		slog.String("extraction", req.Extraction.Name),
		slog.Float64("multiplier", req.Multiplier),
		slog.Bool("dry_run", req.DryRun))

	err := r.execute(ctx, req)
	return r.finish(ctx, err), err
}

func (r *run) execute(ctx context.Context, req RunRequest) error {
	inputs := [2]SourceInput{req.Tracking, req.Extraction}
	labels := [2]string{SourceTracking, SourceExtraction}
	reports := [2]*SourceReport{&r.report.Tracking, &r.report.Extraction}

	// read
	var grids [2]domain.Grid
	if err := r.step(ctx, StepRead, func(ctx context.Context) (string, error) {
		g, gctx := errgroup.WithContext(ctx)
		for i := range inputs {
			g.Go(func() error {
				grid, date1904, err := r.read(gctx, labels[i], inputs[i])
				if err != nil {
					return err
				}
				grids[i] = grid
				reports[i].Date1904 = date1904
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %d rows, date1904=%t; %s: %d rows, date1904=%t",
			labels[0], len(grids[0]), reports[0].Date1904,
			labels[1], len(grids[1]), reports[1].Date1904), nil
	}); err != nil {
		return err
	}

	// aggregate
	if err := r.step(ctx, StepAggregate, func(ctx context.Context) (string, error) {
		g, gctx := errgroup.WithContext(ctx)
		for i := range inputs {
			g.Go(func() error {
				res, err := r.p.aggregator.Aggregate(gctx, grids[i], dataprocessing.Options{
					Label:    labels[i],
					Columns:  inputs[i].Columns,
					Date1904: reports[i].Date1904,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", labels[i], err)
				}
				r.results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		for i := range inputs {
			r.recordSource(ctx, reports[i], r.results[i])
		}
		return fmt.Sprintf("%s: %d days; %s: %d days",
			labels[0], r.results[0].Summary.DaysCount,
			labels[1], r.results[1].Summary.DaysCount), nil
	}); err != nil {
		return err
	}

	// merge
	var merged domain.Table
	if err := r.step(ctx, StepMerge, func(context.Context) (string, error) {
		merged = dataprocessing.Merge(r.results[0].Table, r.results[1].Table)
		r.report.Results = merged
		return fmt.Sprintf("%d contacts, %d days", len(merged.Rows), merged.DayCount()), nil
	}); err != nil {
		return err
	}

	// scale
	var scaled domain.Table
	if err := r.step(ctx, StepScale, func(context.Context) (string, error) {
		scaled = dataprocessing.Scale(merged, req.Multiplier)
		r.report.Scaled = scaled
		return fmt.Sprintf("multiplier %g", req.Multiplier), nil
	}); err != nil {
		return err
	}

	// validate
	if err := r.step(ctx, StepValidate, func(context.Context) (string, error) {
		if merged.DayCount() == 0 || len(merged.Rows) == 0 {
			return "", apperrors.NewEmptyResultError("merged table has no days or no contacts; nothing sent").
				WithContext("days", merged.DayCount()).
				WithContext("contacts", len(merged.Rows))
		}
		return "ok", nil
	}); err != nil {
		return err
	}

	if req.DryRun {
		r.steps.skip(StepDeliver, "dry run")
		r.publish(ctx, ProgressEvent{Type: EventStep, Step: StepDeliver, Status: string(StepStatusSkipped), Message: "dry run"})
		return nil
	}

	// deliver
	return r.step(ctx, StepDeliver, func(ctx context.Context) (string, error) {
		payload := domain.Payload{
			Secret:  req.Secret,
			SheetID: req.SheetID,
			Results: merged,
			Scaled:  scaled,
		}
		if req.ArchiveTracking && len(req.Tracking.Data) > 0 {
			payload.SaveSource = true
			payload.SourceFile = r.sourceFile(req.Tracking)
		}

		err := r.p.sink.Send(ctx, payload)
		r.p.metrics.RecordDelivery(ctx, r.p.sink.Name(), err)
		if err != nil {
			return "", err
		}
		r.report.Delivered = true
		return "sent to " + r.p.sink.Name(), nil
	})
}

func (r *run) read(ctx context.Context, label string, in SourceInput) (domain.Grid, bool, error) {
	wb, err := r.p.source.Open(ctx, in.Data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", label, err)
	}
	defer wb.Close()

	grid, err := workbook.FirstSheet(wb)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", label, err)
	}

	r.p.logger.InfoContext(ctx, "workbook read",
		slog.String("source", label),
		slog.String("file", in.Name),
		slog.Int("rows", len(grid)),
		slog.Bool("date1904", wb.Date1904()))
	return grid, wb.Date1904(), nil
}

func (r *run) recordSource(ctx context.Context, rep *SourceReport, res dataprocessing.Result) {
	rep.Summary = res.Summary
	r.p.metrics.RecordSource(ctx, rep.Label, res.Summary.RowsRead, res.Summary.RowsAfterDedupe)

	if day, total, ok := dataprocessing.LastDay(res.Table); ok {
		rep.LastDay, rep.LastDayTotal = day, total
		r.p.logger.InfoContext(ctx, "last day",
			slog.String("source", rep.Label),
			slog.String("day", day),
			slog.Float64("total", total))
	}

	r.publish(ctx, ProgressEvent{
		Type:    EventSummary,
		Step:    StepAggregate,
		Message: fmt.Sprintf("%s: %d rows read, %d after dedupe, %d days", rep.Label, res.Summary.RowsRead, res.Summary.RowsAfterDedupe, res.Summary.DaysCount),
		Metadata: map[string]any{
			"source":   rep.Label,
			"summary":  res.Summary,
			"last_day": rep.LastDay,
		},
	})
}

func (r *run) sourceFile(in SourceInput) *domain.SourceFile {
	name := in.Name
	if name == "" {
		name = config.ArchiveNamePrefix + r.report.StartedAt.Format("20060102_150405") + ".xlsx"
	}
	mime := in.MIME
	if mime == "" || mime == "application/octet-stream" {
		mime = domain.DefaultSourceMIME
	}
	return &domain.SourceFile{
		Name:   name,
		MIME:   mime,
		Base64: base64.StdEncoding.EncodeToString(in.Data),
	}
}

// step runs fn as the step id: span, state transitions and progress events
func (r *run) step(ctx context.Context, id string, fn func(context.Context) (string, error)) error {
	ctx, span := r.p.tracer.Start(ctx, "pipeline."+id)
	defer span.End()

	r.steps.start(id)
	r.publish(ctx, ProgressEvent{Type: EventStep, Step: id, Status: string(StepStatusActive)})

	// a run cancelled between steps stops before the next one does any work
	var msg string
	err := ctx.Err()
	if err == nil {
		msg, err = fn(ctx)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		r.steps.fail(id, err)
		r.publish(ctx, ProgressEvent{Type: EventStep, Step: id, Status: string(StepStatusFailed), Message: err.Error()})
		return err
	}

	r.steps.complete(id, msg)
	r.publish(ctx, ProgressEvent{Type: EventStep, Step: id, Status: string(StepStatusCompleted), Message: msg})
	return nil
}

func (r *run) publish(ctx context.Context, e ProgressEvent) {
	e.RunID = r.id
	if e.Time.IsZero() {
		e.Time = r.p.now()
	}
	r.p.reporter.Report(ctx, e)
}

func (r *run) finish(ctx context.Context, err error) *RunReport {
	rep := r.report
	rep.FinishedAt = r.p.now()
	duration := rep.FinishedAt.Sub(rep.StartedAt)

	outcome := "success"
	if err != nil {
		r.steps.skipPending("previous step failed")
		rep.Status = RunStatusFailed
		rep.Error = err.Error()
		rep.ErrorType = string(apperrors.TypeOf(err))
		outcome = "failure"
		if apperrors.IsType(err, apperrors.ErrTypeEmptyResult) {
			outcome = "empty"
		}
		r.p.logger.ErrorContext(ctx, "run failed",
			slog.String("run_id", r.id),
			slog.String("error", err.Error()),
			slog.String("error_type", rep.ErrorType),
			slog.Duration("duration", duration))
	} else {
		rep.Status = RunStatusCompleted
		r.p.logger.InfoContext(ctx, "run completed",
			slog.String("run_id", r.id),
			slog.Int("contacts", len(rep.Results.Rows)),
			slog.Int("days", rep.Results.DayCount()),
			slog.Bool("delivered", rep.Delivered),
			slog.Duration("duration", duration))
	}
	rep.Steps = r.steps.snapshot()
	r.p.metrics.RecordRun(ctx, outcome, duration)

	r.publish(ctx, ProgressEvent{
		Type:    EventDone,
		Status:  string(rep.Status),
		Message: rep.Error,
		Metadata: map[string]any{
			"delivered": rep.Delivered,
			"contacts":  len(rep.Results.Rows),
			"days":      rep.Results.DayCount(),
		},
	})
	return rep
}
