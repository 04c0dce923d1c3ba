// Package scanner orchestrates the scan pipeline: extract declarations
// from source, build the model, detect anomalies, render the configured
// graph types, and push them to the graph API.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/dot"
	"github.com/randalmurphal/eventflow/pkg/eventflow/extract"
	"github.com/randalmurphal/eventflow/pkg/eventflow/history"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// pushTimeout bounds a single POST to the graph API.
const pushTimeout = 30 * time.Second

// Result reports the outcome of one scan run.
type Result struct {
	RunID  string
	Events int
	Agents int

	// Report is nil when anomaly detection was skipped.
	Report *eventflow.Report

	// Pushed maps graph type to push success.
	Pushed map[string]bool
}

// AllPushed reports whether every configured graph type was pushed
// successfully.
func (r *Result) AllPushed() bool {
	for _, ok := range r.Pushed {
		if !ok {
			return false
		}
	}
	return true
}

// Scanner runs the scan pipeline against a configured source tree.
type Scanner struct {
	cfg        config.Scanner
	generators *registry.Registry[dot.Factory]
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	store      history.Store
	client     *http.Client
	selfLoops  bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithMetrics sets the metrics recorder (default noop).
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithHistory records every scan run in the given store. The scanner
// does not close the store.
func WithHistory(store history.Store) Option {
	return func(s *Scanner) { s.store = store }
}

// WithHTTPClient overrides the HTTP client used for pushes.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scanner) { s.client = client }
}

// WithSelfLoops reports single-agent feedback loops as cycles.
func WithSelfLoops(enabled bool) Option {
	return func(s *Scanner) { s.selfLoops = enabled }
}

// New creates a Scanner. The generator registry maps graph type names
// to dot generator factories; cfg.GraphTypes selects which are run.
func New(cfg config.Scanner, generators *registry.Registry[dot.Factory], opts ...Option) *Scanner {
	s := &Scanner{
		cfg:        cfg,
		generators: generators,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		client:     &http.Client{Timeout: pushTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan performs a single scan and pushes each configured graph type.
// The returned error covers pipeline failures (extraction or model
// building); push failures are per-graph-type in Result.Pushed.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := observability.EnrichLogger(s.logger, runID, s.cfg.AgentsDir)
	observability.LogScanStart(s.logger, runID, s.cfg.AgentsDir)
	done := observability.TimedOperation()

	result, err := s.scan(ctx, runID, logger)
	durationMs := done()
	if err != nil {
		observability.LogScanError(s.logger, runID, err, durationMs)
		s.metrics.RecordScan(ctx, false, time.Duration(durationMs)*time.Millisecond)
		return nil, err
	}

	anomalies := 0
	if result.Report != nil {
		anomalies = result.Report.Summary.Total
		s.metrics.RecordAnomalies(ctx,
			result.Report.Summary.OrphanedEvents,
			result.Report.Summary.Cycles,
			result.Report.Summary.IsolatedAgents,
		)
	}
	observability.LogScanComplete(s.logger, runID, durationMs, result.Events, result.Agents, anomalies)
	s.metrics.RecordScan(ctx, true, time.Duration(durationMs)*time.Millisecond)

	if s.store != nil {
		s.record(logger, result, anomalies)
	}
	return result, nil
}

// Run scans continuously at the configured interval until ctx is
// cancelled. Per-scan failures are logged and do not stop the loop.
func (s *Scanner) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("continuous mode requires a scan interval")
	}

	s.logger.Info("starting continuous scanner",
		slog.Duration("interval", s.cfg.Interval),
		slog.String("api_url", s.cfg.APIURL),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Scan(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scanner) scan(ctx context.Context, runID string, logger *slog.Logger) (*Result, error) {
	decls, err := extract.New(s.cfg.AgentsDir, s.cfg.EventsDir, extract.WithLogger(logger)).Extract()
	if err != nil {
		return nil, fmt.Errorf("extracting declarations: %w", err)
	}

	model, err := eventflow.NewBuilder().Add(decls...).Build()
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}

	result := &Result{
		RunID:  runID,
		Events: len(model.Events()),
		Agents: len(model.Agents()),
		Pushed: make(map[string]bool, len(s.cfg.GraphTypes)),
	}
	logger.Info("model built",
		slog.Int("events", result.Events),
		slog.Int("agents", result.Agents),
	)

	// Detection is best effort: a failure drops the anomalies section
	// from the payloads instead of aborting the scan.
	detector := eventflow.NewDetector(model, eventflow.WithSelfLoops(s.selfLoops))
	report, detectErr := detector.DetectAll()
	if detectErr != nil {
		observability.LogDetectionSkipped(s.logger, runID, detectErr)
	} else {
		result.Report = report
	}

	s.push(ctx, runID, model, result)
	return result, nil
}

// push renders and POSTs every configured graph type concurrently.
func (s *Scanner) push(ctx context.Context, runID string, model *eventflow.Model, result *Result) {
	opts := dot.Options{
		Colors:   s.cfg.Colors,
		Shapes:   s.cfg.Shapes,
		FontName: s.cfg.FontName,
	}

	stats := Stats{
		Events:      result.Events,
		Agents:      result.Agents,
		Connections: model.Connections(),
	}
	var namespaces []string
	if s.cfg.EventsDir != "" {
		namespaces = model.Namespaces()
	}
	var anomalies *Anomalies
	if result.Report != nil {
		anomalies = &Anomalies{Summary: result.Report.Summary, Details: result.Report}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, graphType := range s.cfg.GraphTypes {
		factory, ok := s.generators.Get(graphType)
		if !ok {
			s.logger.Warn("unknown graph type", slog.String("graph_type", graphType))
			mu.Lock()
			result.Pushed[graphType] = false
			mu.Unlock()
			continue
		}

		payload := Payload{
			GraphType:  graphType,
			Stats:      stats,
			Namespaces: namespaces,
			Anomalies:  anomalies,
		}
		g.Go(func() error {
			content, genErr := factory(opts).Generate(model)
			if genErr == nil {
				payload.DotContent = content
				genErr = s.pushPayload(gctx, payload)
			}

			if genErr != nil {
				observability.LogPushError(s.logger, runID, graphType, genErr)
			} else {
				observability.LogPush(s.logger, runID, graphType, len(content))
			}
			s.metrics.RecordPush(gctx, graphType, genErr == nil)

			mu.Lock()
			result.Pushed[graphType] = genErr == nil
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
}

// pushPayload POSTs one payload to the graph API, expecting 201.
func (s *Scanner) pushPayload(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.APIURL, "/") + "/api/graph"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, endpoint, snippet)
	}
	return nil
}

// record saves the run outcome; history failures only log.
func (s *Scanner) record(logger *slog.Logger, result *Result, anomalies int) {
	report, err := json.Marshal(result.Report)
	if err != nil {
		logger.Warn("encoding report for history failed", slog.String("error", err.Error()))
		return
	}
	rec := history.Record{
		RunID:     result.RunID,
		Timestamp: time.Now().UTC(),
		Events:    result.Events,
		Agents:    result.Agents,
		Anomalies: anomalies,
		Report:    report,
	}
	if err := s.store.Save(rec); err != nil {
		logger.Warn("saving scan history failed", slog.String("error", err.Error()))
	}
}
