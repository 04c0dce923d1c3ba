package observability

import (
	"context"
	"time"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordScan does nothing.
func (NoopMetrics) RecordScan(_ context.Context, _ bool, _ time.Duration) {}

// RecordAnomalies does nothing.
func (NoopMetrics) RecordAnomalies(_ context.Context, _, _, _ int) {}

// RecordPush does nothing.
func (NoopMetrics) RecordPush(_ context.Context, _ string, _ bool) {}
