package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// ServiceName identifies this service in exported telemetry.
	ServiceName    = "macropulse"
	ServiceVersion = "1.0.0"
	meterName      = "macropulse"
)

// Metrics holds the service's OpenTelemetry instruments, exported via
// Prometheus on /metrics.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	fetchTotal    metric.Int64Counter
	fetchDuration metric.Float64Histogram
	cacheTotal    metric.Int64Counter
	pipelineRuns  metric.Int64Counter

	// Handler serves the Prometheus scrape endpoint.
	Handler http.Handler
}

// NewMetrics builds the meter provider with a Prometheus exporter and
// registers the service instruments. Each Metrics owns its registry so
// repeated construction (tests, embedded use) never collides on the global
// registerer.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(meterName)

	m := &Metrics{
		provider: provider,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	m.fetchTotal, err = meter.Int64Counter("macropulse_fetch_total",
		metric.WithDescription("Series fetches by source id and outcome"))
	if err != nil {
		return nil, err
	}
	m.fetchDuration, err = meter.Float64Histogram("macropulse_fetch_duration_seconds",
		metric.WithDescription("Series fetch latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.cacheTotal, err = meter.Int64Counter("macropulse_cache_total",
		metric.WithDescription("Fetch cache lookups by outcome"))
	if err != nil {
		return nil, err
	}
	m.pipelineRuns, err = meter.Int64Counter("macropulse_pipeline_runs_total",
		metric.WithDescription("Pipeline invocations by outcome"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordFetch records one upstream fetch attempt.
func (m *Metrics) RecordFetch(ctx context.Context, seriesID string, elapsed time.Duration, ok bool) {
	attrs := metric.WithAttributes(
		attribute.String("series_id", seriesID),
		attribute.Bool("success", ok),
	)
	m.fetchTotal.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("series_id", seriesID)))
}

// RecordCache records one cache lookup.
func (m *Metrics) RecordCache(ctx context.Context, hit bool) {
	m.cacheTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// RecordPipelineRun records one completed pipeline invocation.
func (m *Metrics) RecordPipelineRun(ctx context.Context, outcome string) {
	m.pipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
