// Package observability provides OpenTelemetry metrics (Prometheus exporter)
// and the trace-aware slog handler.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/meetscribe/insights/internal/observability"
	defaultServiceName = "meetscribe-insights"
)

// durationHistogramBoundaries are buckets (seconds) for pipeline durations.
// Transcription of long recordings runs well past typical request latencies.
var durationHistogramBoundaries = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// PipelineMetrics is the single metrics interface for the pipeline.
type PipelineMetrics interface {
	RecordTranscription(ctx context.Context, outcome string, duration time.Duration)
	RecordCorrection(ctx context.Context, outcome string)
	RecordProviderError(ctx context.Context, provider, reason string)
	RecordEnqueueError(ctx context.Context)
	RecordNotificationDropped(ctx context.Context)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: meetscribe-insights).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and
// returns the provider, an HTTP handler for /metrics, and PipelineMetrics
// using the provider's Meter. Caller must call provider.Shutdown on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (MeterProviderShutdown, http.Handler, PipelineMetrics, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	metrics, err := newMetrics(provider.Meter(meterScope))
	if err != nil {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			return nil, nil, nil, fmt.Errorf("create metrics: %w (shutdown: %v)", err, shutdownErr)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return provider, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics, nil
}

// Metrics implements PipelineMetrics on an otel Meter.
type Metrics struct {
	transcriptions       metric.Int64Counter
	transcriptionSeconds metric.Float64Histogram
	corrections          metric.Int64Counter
	providerErrors       metric.Int64Counter
	enqueueErrors        metric.Int64Counter
	notificationsDropped metric.Int64Counter
}

var _ PipelineMetrics = (*Metrics)(nil)

func newMetrics(meter metric.Meter) (*Metrics, error) {
	transcriptions, err := meter.Int64Counter("insight_transcriptions_total",
		metric.WithDescription("Transcription pipeline runs by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create transcriptions counter: %w", err)
	}

	transcriptionSeconds, err := meter.Float64Histogram("insight_transcription_duration_seconds",
		metric.WithDescription("Transcription pipeline duration by outcome"),
		metric.WithExplicitBucketBoundaries(durationHistogramBoundaries...))
	if err != nil {
		return nil, fmt.Errorf("create transcription duration histogram: %w", err)
	}

	corrections, err := meter.Int64Counter("insight_corrections_total",
		metric.WithDescription("Knowledge correction passes by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create corrections counter: %w", err)
	}

	providerErrors, err := meter.Int64Counter("insight_provider_errors_total",
		metric.WithDescription("External provider errors by provider and reason"))
	if err != nil {
		return nil, fmt.Errorf("create provider errors counter: %w", err)
	}

	enqueueErrors, err := meter.Int64Counter("insight_correction_enqueue_errors_total",
		metric.WithDescription("Failed correction job enqueues"))
	if err != nil {
		return nil, fmt.Errorf("create enqueue errors counter: %w", err)
	}

	notificationsDropped, err := meter.Int64Counter("insight_notifications_dropped_total",
		metric.WithDescription("Notifications dropped because the buffer was full"))
	if err != nil {
		return nil, fmt.Errorf("create notifications dropped counter: %w", err)
	}

	return &Metrics{
		transcriptions:       transcriptions,
		transcriptionSeconds: transcriptionSeconds,
		corrections:          corrections,
		providerErrors:       providerErrors,
		enqueueErrors:        enqueueErrors,
		notificationsDropped: notificationsDropped,
	}, nil
}

// RecordTranscription records one pipeline run.
func (m *Metrics) RecordTranscription(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.transcriptions.Add(ctx, 1, attrs)
	m.transcriptionSeconds.Record(ctx, duration.Seconds(), attrs)
}

// RecordCorrection records one correction pass outcome.
func (m *Metrics) RecordCorrection(ctx context.Context, outcome string) {
	m.corrections.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProviderError records an external provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, reason string) {
	m.providerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("reason", reason),
	))
}

// RecordEnqueueError records a failed correction enqueue.
func (m *Metrics) RecordEnqueueError(ctx context.Context) {
	m.enqueueErrors.Add(ctx, 1)
}

// RecordNotificationDropped records a dropped notification.
func (m *Metrics) RecordNotificationDropped(ctx context.Context) {
	m.notificationsDropped.Add(ctx, 1)
}
