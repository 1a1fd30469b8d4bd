package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	var seen, traceID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		traceID = infrastructure.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, traceID)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestStructuredLogger(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/brew", nil))

	recs := logs.Find("request completed")
	require.Len(t, recs, 1)
	assert.EqualValues(t, http.StatusTeapot, recs[0].Attr("status"))
	assert.Equal(t, "/brew", recs[0].Attr("path"))
	assert.EqualValues(t, 3, recs[0].Attr("bytes"))
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(Recoverer(apperrors.NewErrorHandler(logger, false))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.TypeInternal, body["type"])
	assert.NotEmpty(t, body["trace_id"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.0001, 2, logger)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://app.example"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	pre := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	pre.Header.Set("Origin", "http://app.example")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	other.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTelemetryRecordsRoutePattern(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(config.TelemetryConfig{
		ServiceName:    "middleware-test",
		MetricsEnabled: true,
		TraceExporter:  "none",
	}, "test", nil)
	require.NoError(t, err)
	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Telemetry(providers.Tracer, metrics))
	r.Get("/api/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/items/42", nil))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `route="/api/v1/items/{id}"`)
	assert.NotContains(t, string(body), "/api/v1/items/42")
}
