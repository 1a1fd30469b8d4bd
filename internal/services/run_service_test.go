package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/shared/testutil"
	"github.com/solutionspelichet/library-un/internal/workbook"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

type blockingSink struct {
	mu      sync.Mutex
	sent    []domain.Payload
	entered chan struct{}
	release chan struct{}
	pingErr error
}

func (s *blockingSink) Name() string { return "test" }

func (s *blockingSink) Send(ctx context.Context, p domain.Payload) error {
	if s.entered != nil {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p)
	return nil
}

func (s *blockingSink) Ping(context.Context) error { return s.pingErr }

func (s *blockingSink) payloads() []domain.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Payload(nil), s.sent...)
}

func newService(t *testing.T, s *blockingSink) *RunService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default()
	cfg.Sink.Secret = "from-config"
	cfg.Sink.SheetID = "sheet-9"
	cfg.Pipeline.MaxFileMB = 1
	p := operations.NewPipeline(operations.PipelineOptions{
		Source: workbook.NewReader(logger),
		Sink:   s,
		Logger: logger,
	})
	return NewRunService(p, s, cfg.Pipeline, cfg.Sink, logger)
}

func input(t *testing.T) RunInput {
	return RunInput{
		Tracking:   FileInput{Name: "suivi.xlsx", Data: testutil.XLSX(t, false, testutil.TrackingRows()...)},
		Extraction: FileInput{Name: "extraction.xlsx", Data: testutil.XLSX(t, false, testutil.ExtractionRows()...)},
	}
}

func TestRunServiceDefaults(t *testing.T) {
	s := &blockingSink{}
	svc := newService(t, s)

	_, err := svc.LastReport()
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	report, err := svc.Run(context.Background(), input(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMultiplier, report.Multiplier)

	sent := s.payloads()
	require.Len(t, sent, 1)
	assert.Equal(t, "from-config", sent[0].Secret)
	assert.Equal(t, "sheet-9", sent[0].SheetID)
	assert.True(t, sent[0].SaveSource)

	last, err := svc.LastReport()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, last.RunID)
	assert.False(t, svc.Running())
}

func TestRunServiceOverrides(t *testing.T) {
	s := &blockingSink{}
	svc := newService(t, s)

	k := 2.0
	archive := false
	in := input(t)
	in.Multiplier = &k
	in.Secret = "given"
	in.ArchiveTracking = &archive
	in.TrackingColumns = "a, b, c, d"

	_, err := svc.Run(context.Background(), in)
	require.NoError(t, err)

	sent := s.payloads()
	require.Len(t, sent, 1)
	assert.Equal(t, "given", sent[0].Secret)
	assert.False(t, sent[0].SaveSource)
	assert.Equal(t, 20.0, sent[0].Scaled.Rows[0][1].Number)
}

func TestRunServiceRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunInput)
		errType apperrors.ErrorType
	}{
		{
			name:    "missing extraction",
			mutate:  func(in *RunInput) { in.Extraction = FileInput{} },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "oversize tracking",
			mutate:  func(in *RunInput) { in.Tracking.Data = make([]byte, 1<<20+1) },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "three columns",
			mutate:  func(in *RunInput) { in.ExtractionColumns = "A,B,C" },
			errType: apperrors.ErrTypeConfig,
		},
		{
			name: "infinite multiplier",
			mutate: func(in *RunInput) {
				inf := math.Inf(1)
				in.Multiplier = &inf
			},
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &blockingSink{}
			svc := newService(t, s)
			in := input(t)
			tt.mutate(&in)

			report, err := svc.Run(context.Background(), in)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
			assert.Empty(t, s.payloads())
		})
	}
}

func TestRunServiceSingleFlight(t *testing.T) {
	s := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	svc := newService(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), input(t))
		done <- err
	}()

	<-s.entered
	assert.True(t, svc.Running())

	_, err := svc.Run(context.Background(), input(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	close(s.release)
	require.NoError(t, <-done)
	assert.False(t, svc.Running())
	assert.Len(t, s.payloads(), 1)
}

func TestRunServiceKeepsFailedReport(t *testing.T) {
	s := &blockingSink{}
	svc := newService(t, s)

	in := input(t)
	in.Extraction.Data = testutil.XLSX(t, false, []any{"ID", "Contact", "Qty", "Date"})
	in.Tracking.Data = in.Extraction.Data

	_, err := svc.Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyResult))

	last, err := svc.LastReport()
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusFailed, last.Status)
}

func TestHealthService(t *testing.T) {
	s := &blockingSink{}
	svc := newService(t, s)
	hs := NewHealthService("1.2.3", svc, nil, nil)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "test", status.Sink)
	assert.False(t, status.RunActive)
	assert.Zero(t, status.Clients)
}

func TestPingSink(t *testing.T) {
	s := &blockingSink{}
	svc := newService(t, s)
	assert.NoError(t, svc.PingSink(context.Background()))

	s.pingErr = apperrors.NewTransportError("unreachable", nil)
	err := svc.PingSink(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))
}
