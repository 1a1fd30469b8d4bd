package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutionspelichet/library-un/internal/config"
)

func TestInitializeOTelServesPipelineMetrics(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "library-un-test",
		MetricsEnabled: true,
		TraceExporter:  "none",
	}, "test", nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider)

	metrics, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRun(ctx, "success", 1500*time.Millisecond)
	metrics.RecordSource(ctx, "tracking", 10, 8)
	metrics.RecordDelivery(ctx, "apps_script", errors.New("boom"))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	assert.Contains(t, out, "pipeline_runs")
	assert.Contains(t, out, `outcome="success"`)
	assert.Contains(t, out, "pipeline_rows_deduplicated")
	assert.Contains(t, out, `source="tracking"`)
	assert.Contains(t, out, `sink="apps_script"`)
	assert.Contains(t, out, "pipeline_run_duration")
}

func TestInitializeOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{ServiceName: "x", TraceExporter: "none"}, "test", nil)
	require.NoError(t, err)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Tracer)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestNilAndNoopMetrics(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), "failure", time.Second)
		m.RecordDelivery(context.Background(), "file", nil)
	})
	assert.NotPanics(t, func() {
		NoopPipelineMetrics().RecordSource(context.Background(), "extraction", 1, 1)
	})
}
