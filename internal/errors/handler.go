package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"

	"github.com/solutionspelichet/library-un/internal/infrastructure"
)

// Problem types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeConfig          = "/errors/configuration"
	TypeParsing         = "/errors/workbook-unreadable"
	TypeEmptyResult     = "/errors/empty-result"
	TypeTransport       = "/errors/sink-unavailable"
	TypeConflict        = "/errors/run/already-running"
	TypeNotFound        = "/errors/not-found"
	TypeTimeout         = "/errors/timeout"
	TypeInternal        = "/errors/internal"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	traceID := infrastructure.GetTraceID(r.Context())

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}
	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}

	status, problemType := statusFor(appErr.Type)
	problem := NewProblemDetails(status, problemType, http.StatusText(status), appErr.Error(), r.URL.Path).
		WithExtension("error_code", string(appErr.Type))
	if len(appErr.Context) > 0 {
		problem.WithExtension("details", appErr.Context)
	}
	return problem
}

// StatusFor returns the HTTP status used for an error type
func StatusFor(errType ErrorType) int {
	status, _ := statusFor(errType)
	return status
}

func statusFor(errType ErrorType) (int, string) {
	switch errType {
	case ErrTypeConfig:
		return http.StatusBadRequest, TypeConfig
	case ErrTypeValidation:
		return http.StatusBadRequest, TypeValidation
	case ErrTypeParsing:
		return http.StatusUnprocessableEntity, TypeParsing
	case ErrTypeEmptyResult:
		return http.StatusUnprocessableEntity, TypeEmptyResult
	case ErrTypeTransport:
		return http.StatusBadGateway, TypeTransport
	case ErrTypeConflict:
		return http.StatusConflict, TypeConflict
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
