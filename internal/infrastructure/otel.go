package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/solutionspelichet/library-un/internal/config"
)

// InstrumentationName names the tracer and meter of this module
const InstrumentationName = "github.com/solutionspelichet/library-un"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// PrometheusHTTP serves /metrics; nil when metrics are disabled
	PrometheusHTTP http.Handler
}

// InitializeOTel builds tracing and metrics providers from cfg. Disabled
// parts fall back to no-op implementations so callers never check for nil.
func InitializeOTel(cfg config.TelemetryConfig, version string, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	)

	providers := &OTelProviders{
		Tracer: otel.Tracer(InstrumentationName),
		Meter:  noop.NewMeterProvider().Meter(InstrumentationName),
	}

	if cfg.TracingEnabled && cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version))
	}

	if cfg.MetricsEnabled {
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if logger != nil {
		logger.InfoContext(ctx, "telemetry initialized",
			slog.String("service", cfg.ServiceName),
			slog.Bool("tracing_enabled", providers.TracerProvider != nil),
			slog.Bool("metrics_enabled", providers.MeterProvider != nil))
	}
	return providers, nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PipelineMetrics are the instruments recorded by reconciliation runs
type PipelineMetrics struct {
	RunsTotal           metric.Int64Counter
	RunDuration         metric.Float64Histogram
	RowsRead            metric.Int64Counter
	RowsDeduplicated    metric.Int64Counter
	DeliveriesTotal     metric.Int64Counter
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

// NewPipelineMetrics creates the instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)
	if m.RunsTotal, err = meter.Int64Counter("pipeline_runs",
		metric.WithDescription("Reconciliation runs by outcome")); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram("pipeline_run_duration",
		metric.WithDescription("Reconciliation run duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.RowsRead, err = meter.Int64Counter("pipeline_rows_read",
		metric.WithDescription("Data rows read per source")); err != nil {
		return nil, err
	}
	if m.RowsDeduplicated, err = meter.Int64Counter("pipeline_rows_deduplicated",
		metric.WithDescription("Rows dropped as duplicate keys per source")); err != nil {
		return nil, err
	}
	if m.DeliveriesTotal, err = meter.Int64Counter("pipeline_deliveries",
		metric.WithDescription("Payload deliveries by sink and outcome")); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests",
		metric.WithDescription("HTTP requests by route and status")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

// NoopPipelineMetrics returns instruments that record nothing
func NoopPipelineMetrics() *PipelineMetrics {
	m, _ := NewPipelineMetrics(noop.NewMeterProvider().Meter(InstrumentationName))
	return m
}

// RecordRun records the outcome and duration of one run
func (m *PipelineMetrics) RecordRun(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSource records row counts for one aggregated source
func (m *PipelineMetrics) RecordSource(ctx context.Context, source string, read, kept int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.RowsRead.Add(ctx, int64(read), attrs)
	m.RowsDeduplicated.Add(ctx, int64(read-kept), attrs)
}

// RecordDelivery records one sink handoff
func (m *PipelineMetrics) RecordDelivery(ctx context.Context, sink string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.DeliveriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("outcome", outcome)))
}

// RecordHTTPRequest records one served request
func (m *PipelineMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status))
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
