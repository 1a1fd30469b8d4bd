package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/sink"
	"github.com/solutionspelichet/library-un/internal/validation"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// FileInput is one workbook received from a client
type FileInput struct {
	Name string
	MIME string
	Data []byte
}

// RunInput is what a client asks for. Empty fields fall back to
// configuration.
type RunInput struct {
	Tracking          FileInput
	Extraction        FileInput
	TrackingColumns   string
	ExtractionColumns string
	Multiplier        *float64
	Secret            string
	ArchiveTracking   *bool
	DryRun            bool
}

// RunService runs one reconciliation at a time and remembers the last one
type RunService struct {
	pipeline *operations.Pipeline
	sink     sink.Sink
	files    *validation.FileValidator
	validate *validation.Validator
	pipeCfg  config.PipelineConfig
	sinkCfg  config.SinkConfig
	logger   *slog.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last *operations.RunReport
}

// NewRunService creates a run service
func NewRunService(p *operations.Pipeline, s sink.Sink, pipeCfg config.PipelineConfig, sinkCfg config.SinkConfig, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "run"))
	return &RunService{
		pipeline: p,
		sink:     s,
		files:    validation.NewFileValidator(pipeCfg.MaxFileBytes(), logger),
		validate: validation.New(),
		pipeCfg:  pipeCfg,
		sinkCfg:  sinkCfg,
		logger:   logger,
	}
}

// Run validates in and executes the pipeline. It fails with CONFLICT when
// another run is in progress.
func (s *RunService) Run(ctx context.Context, in RunInput) (*operations.RunReport, error) {
	if !s.running.TryLock() {
		s.logger.WarnContext(ctx, "run rejected, another run is in progress")
		return nil, apperrors.NewConflictError("a run is already in progress")
	}
	defer s.running.Unlock()

	req, err := s.buildRequest(in)
	if err != nil {
		return nil, err
	}

	report, err := s.pipeline.Run(ctx, req)
	if report != nil {
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}
	return report, err
}

// Running reports whether a run is in progress
func (s *RunService) Running() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

// LastReport returns the report of the most recent run
func (s *RunService) LastReport() (*operations.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, apperrors.NewNotFoundError("run report")
	}
	return s.last, nil
}

// PingSink checks that the configured sink is reachable
func (s *RunService) PingSink(ctx context.Context) error {
	if err := s.sink.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "sink ping failed",
			slog.String("sink", s.sink.Name()),
			slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "sink ping ok", slog.String("sink", s.sink.Name()))
	return nil
}

// SinkName returns the configured sink's name
func (s *RunService) SinkName() string { return s.sink.Name() }

func (s *RunService) buildRequest(in RunInput) (operations.RunRequest, error) {
	for _, f := range []struct {
		field string
		in    FileInput
	}{
		{operations.SourceTracking, in.Tracking},
		{operations.SourceExtraction, in.Extraction},
	} {
		if err := s.files.ValidateUpload(validation.Upload{
			Field:    f.field,
			FileName: f.in.Name,
			Size:     int64(len(f.in.Data)),
		}); err != nil {
			return operations.RunRequest{}, err
		}
	}

	trackingCols, err := s.columns(operations.SourceTracking, in.TrackingColumns, s.pipeCfg.TrackingColumns)
	if err != nil {
		return operations.RunRequest{}, err
	}
	extractionCols, err := s.columns(operations.SourceExtraction, in.ExtractionColumns, s.pipeCfg.ExtractionColumns)
	if err != nil {
		return operations.RunRequest{}, err
	}

	multiplier := s.pipeCfg.Multiplier
	if in.Multiplier != nil {
		multiplier = *in.Multiplier
	}
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return operations.RunRequest{}, apperrors.NewValidationError("multiplier must be a finite number")
	}

	secret := in.Secret
	if secret == "" {
		secret = s.sinkCfg.Secret
	}
	archive := s.pipeCfg.ArchiveTracking
	if in.ArchiveTracking != nil {
		archive = *in.ArchiveTracking
	}

	return operations.RunRequest{
		Tracking: operations.SourceInput{
			Name: in.Tracking.Name, MIME: in.Tracking.MIME, Data: in.Tracking.Data, Columns: trackingCols,
		},
		Extraction: operations.SourceInput{
			Name: in.Extraction.Name, MIME: in.Extraction.MIME, Data: in.Extraction.Data, Columns: extractionCols,
		},
		Multiplier:      multiplier,
		Secret:          secret,
		SheetID:         s.sinkCfg.SheetID,
		ArchiveTracking: archive,
		DryRun:          in.DryRun,
	}, nil
}

func (s *RunService) columns(label, given, fallback string) (domain.ColumnMapping, error) {
	if given == "" {
		given = fallback
	}
	m, err := config.ParseColumns(given)
	if err != nil {
		return domain.ColumnMapping{}, apperrors.NewConfigError(fmt.Sprintf("%s columns", label), err).
			WithContext("columns", given)
	}
	if err := s.validate.Struct(m); err != nil {
		return domain.ColumnMapping{}, err
	}
	return m, nil
}
