// Package observability provides structured logging and metrics for
// the event-flow scanner.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds scan context to a logger.
// Returns a new logger with run_id and agents_dir fields.
func EnrichLogger(logger *slog.Logger, runID, agentsDir string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("agents_dir", agentsDir),
	)
}

// LogScanStart logs the start of a scan run.
func LogScanStart(logger *slog.Logger, runID, agentsDir string) {
	if logger == nil {
		return
	}
	logger.Info("scan starting",
		slog.String("run_id", runID),
		slog.String("agents_dir", agentsDir),
	)
}

// LogScanComplete logs successful scan completion.
func LogScanComplete(logger *slog.Logger, runID string, durationMs float64, events, agents, anomalies int) {
	if logger == nil {
		return
	}
	logger.Info("scan completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("events", events),
		slog.Int("agents", agents),
		slog.Int("anomalies", anomalies),
	)
}

// LogScanError logs scan failure.
func LogScanError(logger *slog.Logger, runID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("scan failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDetectionSkipped logs a best-effort anomaly detection failure.
func LogDetectionSkipped(logger *slog.Logger, runID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("anomaly detection skipped",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	)
}

// LogPush logs a successful graph push.
func LogPush(logger *slog.Logger, runID, graphType string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("graph pushed",
		slog.String("run_id", runID),
		slog.String("graph_type", graphType),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogPushError logs a failed graph push (non-fatal).
func LogPushError(logger *slog.Logger, runID, graphType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("graph push failed",
		slog.String("run_id", runID),
		slog.String("graph_type", graphType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
