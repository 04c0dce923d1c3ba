package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records scanner metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordScan records a scan run with its duration and outcome.
	RecordScan(ctx context.Context, success bool, duration time.Duration)

	// RecordAnomalies records the anomaly counts of a scan.
	RecordAnomalies(ctx context.Context, orphaned, cycles, isolated int)

	// RecordPush records a graph push attempt for a graph type.
	RecordPush(ctx context.Context, graphType string, success bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	scans       metric.Int64Counter
	scanLatency metric.Float64Histogram
	anomalies   metric.Int64Counter
	pushes      metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventflow")

	scans, err := meter.Int64Counter("eventflow.scan.runs",
		metric.WithDescription("Number of scan runs"),
	)
	if err != nil {
		return nil, err
	}

	scanLatency, err := meter.Float64Histogram("eventflow.scan.latency_ms",
		metric.WithDescription("Scan run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	anomalies, err := meter.Int64Counter("eventflow.scan.anomalies",
		metric.WithDescription("Number of anomalies found per kind"),
	)
	if err != nil {
		return nil, err
	}

	pushes, err := meter.Int64Counter("eventflow.push.attempts",
		metric.WithDescription("Number of graph push attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		scans:       scans,
		scanLatency: scanLatency,
		anomalies:   anomalies,
		pushes:      pushes,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordScan records a scan run.
func (m *otelMetrics) RecordScan(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.scans.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.scanLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordAnomalies records per-kind anomaly counts.
func (m *otelMetrics) RecordAnomalies(ctx context.Context, orphaned, cycles, isolated int) {
	record := func(kind string, count int) {
		if count == 0 {
			return
		}
		m.anomalies.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
	record("orphaned_events", orphaned)
	record("cycles", cycles)
	record("isolated_agents", isolated)
}

// RecordPush records a graph push attempt.
func (m *otelMetrics) RecordPush(ctx context.Context, graphType string, success bool) {
	m.pushes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph_type", graphType),
		attribute.Bool("success", success),
	))
}
