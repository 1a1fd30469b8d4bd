package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/services"
)

// Multipart field names of POST /api/v1/runs
const (
	FieldTracking          = "tracking"
	FieldExtraction        = "extraction"
	FieldTrackingColumns   = "tracking_columns"
	FieldExtractionColumns = "extraction_columns"
	FieldMultiplier        = "multiplier"
	FieldSecret            = "secret"
	FieldArchive           = "archive_tracking"
	FieldDryRun            = "dry_run"
)

// multipartMemory is kept in memory before spilling uploads to disk
const multipartMemory = 32 << 20

// RunsHandler handles run-related HTTP requests
type RunsHandler struct {
	service  RunService
	errors   *apperrors.ErrorHandler
	maxBytes int64
	logger   *slog.Logger
}

// NewRunsHandler creates a runs handler. maxFileBytes bounds each uploaded
// workbook; the request body may hold two of them.
func NewRunsHandler(service RunService, errorHandler *apperrors.ErrorHandler, maxFileBytes int64, logger *slog.Logger) *RunsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunsHandler{
		service:  service,
		errors:   errorHandler,
		maxBytes: maxFileBytes,
		logger:   logger.With(slog.String("handler", "runs")),
	}
}

// Routes mounts the run and sink endpoints
func (h *RunsHandler) Routes(r chi.Router) {
	r.Post("/runs", h.CreateRun)
	r.Get("/runs/last", h.LastRun)
	r.Post("/sink/ping", h.PingSink)
}

// CreateRun handles POST /api/v1/runs
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxBytes+multipartMemory)
	}

	in, err := h.parseRunInput(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "run requested",
		slog.String("tracking", in.Tracking.Name),
		slog.Int("tracking_size", len(in.Tracking.Data)),
		slog.String("extraction", in.Extraction.Name),
		slog.Int("extraction_size", len(in.Extraction.Data)),
		slog.Bool("dry_run", in.DryRun))

	report, err := h.service.Run(ctx, in)
	if err != nil {
		problem := h.errors.ErrorToProblem(err, r).
			WithExtension("trace_id", infrastructure.GetTraceID(ctx))
		if report != nil {
			problem.WithExtension("report", report)
		}
		h.logger.WarnContext(ctx, "run failed",
			slog.String("error", err.Error()),
			slog.Int("status", problem.Status))
		_ = render.Render(w, r, problem)
		return
	}
	render.JSON(w, r, report)
}

// LastRun handles GET /api/v1/runs/last
func (h *RunsHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LastReport()
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// PingSink handles POST /api/v1/sink/ping
func (h *RunsHandler) PingSink(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PingSink(r.Context()); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok", "sink": h.service.SinkName()})
}

func (h *RunsHandler) parseRunInput(r *http.Request) (services.RunInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.RunInput{}, apperrors.NewValidationError(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return services.RunInput{}, apperrors.NewAppError(apperrors.ErrTypeValidation, "expected a multipart form", err)
	}

	var (
		in  services.RunInput
		err error
	)
	if in.Tracking, err = readFile(r.MultipartForm, FieldTracking); err != nil {
		return in, err
	}
	if in.Extraction, err = readFile(r.MultipartForm, FieldExtraction); err != nil {
		return in, err
	}

	in.TrackingColumns = strings.TrimSpace(r.FormValue(FieldTrackingColumns))
	in.ExtractionColumns = strings.TrimSpace(r.FormValue(FieldExtractionColumns))
	in.Secret = r.FormValue(FieldSecret)

	if v := strings.TrimSpace(r.FormValue(FieldMultiplier)); v != "" {
		k, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
		if err != nil {
			return in, apperrors.NewValidationError(fmt.Sprintf("multiplier %q is not a number", v))
		}
		in.Multiplier = &k
	}
	if v := r.FormValue(FieldArchive); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apperrors.NewValidationError(fmt.Sprintf("%s %q is not a boolean", FieldArchive, v))
		}
		in.ArchiveTracking = &b
	}
	if v := r.FormValue(FieldDryRun); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apperrors.NewValidationError(fmt.Sprintf("%s %q is not a boolean", FieldDryRun, v))
		}
		in.DryRun = b
	}
	return in, nil
}

// readFile returns the named upload. A missing field yields an empty input
// so the service reports it with the other validation failures.
func readFile(form *multipart.Form, field string) (services.FileInput, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return services.FileInput{}, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return services.FileInput{}, apperrors.NewAppError(apperrors.ErrTypeValidation, "cannot open upload "+field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.FileInput{}, apperrors.NewAppError(apperrors.ErrTypeValidation, "cannot read upload "+field, err)
	}
	return services.FileInput{
		Name: fh.Filename,
		MIME: fh.Header.Get("Content-Type"),
		Data: data,
	}, nil
}
