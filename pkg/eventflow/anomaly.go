package eventflow

import (
	"fmt"
	"runtime/debug"
)

// Severity classifies how actionable an anomaly is.
type Severity string

const (
	// SeverityWarning marks anomalies that usually indicate a defect.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks anomalies that may be intentional.
	SeverityInfo Severity = "info"
)

// OrphanKind distinguishes the two orphaned-event anomalies.
type OrphanKind string

const (
	// OrphanNeverPublished marks an event no agent publishes.
	OrphanNeverPublished OrphanKind = "never_published"

	// OrphanNeverSubscribed marks an event no agent consumes.
	OrphanNeverSubscribed OrphanKind = "never_subscribed"
)

// OrphanedEvent reports an event with no publishers or no subscribers.
type OrphanedEvent struct {
	Event     string     `json:"event"`
	Namespace string     `json:"namespace"`
	Kind      OrphanKind `json:"type"`
	Severity  Severity   `json:"severity"`
	Message   string     `json:"message"`
}

// IsolatedAgent reports an agent with neither publications nor
// subscriptions.
type IsolatedAgent struct {
	Agent     string   `json:"agent"`
	Namespace string   `json:"namespace"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// CycleStep is one hop of a reported cycle: the agent at this position
// and the event names whose publication produces the edge to the next
// agent on the path.
type CycleStep struct {
	Agent     string   `json:"agent"`
	Namespace string   `json:"namespace"`
	Publishes []string `json:"publishes"`
}

// Cycle reports a circular triggering chain between agents.
// Agents holds the cycle in canonical rotation (starting at the
// lexicographically smallest agent); Path carries one enriched step per
// agent.
type Cycle struct {
	Agents   []string    `json:"cycle"`
	Path     []CycleStep `json:"path"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
}

// Summary holds per-kind anomaly counts. Total always reconciles with
// the sum of the three sections of the full report.
type Summary struct {
	OrphanedEvents int `json:"orphaned_events_count"`
	Cycles         int `json:"cycles_count"`
	IsolatedAgents int `json:"isolated_agents_count"`
	Total          int `json:"total_anomalies"`
}

// Report is the structured result of a detection run. It is a pure
// function of the model at the moment of computation, holds no
// reference to the model, and serializes as plain nested key/value data
// so it can be embedded under a namespaced key in a larger payload.
type Report struct {
	OrphanedEvents []OrphanedEvent `json:"orphaned_events"`
	Cycles         []Cycle         `json:"cycles"`
	IsolatedAgents []IsolatedAgent `json:"isolated_agents"`
	Summary        Summary         `json:"summary"`
}

// Detector runs the three anomaly analyses over an immutable Model.
// It holds no cross-call state; every DetectAll call recomputes from
// scratch. A single Detector, like the Model it wraps, is safe for
// concurrent use.
type Detector struct {
	model     *Model
	selfLoops bool
}

// NewDetector creates a Detector over model.
// Panics if model is nil, matching builder-misuse handling elsewhere in
// the package.
func NewDetector(model *Model, opts ...DetectorOption) *Detector {
	if model == nil {
		panic("eventflow: " + ErrNilModel.Error())
	}

	d := &Detector{model: model}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectAll runs orphaned-event, cycle, and isolated-agent detection
// and returns the combined report. Any panic raised by a detection pass
// is recovered and returned as a *DetectionError; the report is nil in
// that case. Callers integrating detection as best-effort should treat
// errors.Is(err, ErrDetectionFailed) as "omit the anomaly section".
func (d *Detector) DetectAll() (report *Report, err error) {
	stage := "orphans"
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = &DetectionError{Stage: stage, Value: r, Stack: string(debug.Stack())}
		}
	}()

	orphans := d.detectOrphanedEvents()
	stage = "cycles"
	cycles := d.detectCycles()
	stage = "isolated"
	isolated := d.detectIsolatedAgents()

	return &Report{
		OrphanedEvents: orphans,
		Cycles:         cycles,
		IsolatedAgents: isolated,
		Summary: Summary{
			OrphanedEvents: len(orphans),
			Cycles:         len(cycles),
			IsolatedAgents: len(isolated),
			Total:          len(orphans) + len(cycles) + len(isolated),
		},
	}, nil
}

// Summary runs a full detection and returns only the counts.
func (d *Detector) Summary() (Summary, error) {
	report, err := d.DetectAll()
	if err != nil {
		return Summary{}, err
	}
	return report.Summary, nil
}

// detectOrphanedEvents emits never_published for events without
// publishers and never_subscribed for events without subscribers.
// An event in the model is referenced by at least one relation, so at
// most one of the two fires per event.
func (d *Detector) detectOrphanedEvents() []OrphanedEvent {
	orphaned := make([]OrphanedEvent, 0)

	for _, event := range d.model.events {
		if len(d.model.publishers[event]) == 0 {
			orphaned = append(orphaned, OrphanedEvent{
				Event:     event.Name,
				Namespace: event.Namespace,
				Kind:      OrphanNeverPublished,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("event %q is never published by any agent", event.Name),
			})
		}
		if len(d.model.subscribers[event]) == 0 {
			orphaned = append(orphaned, OrphanedEvent{
				Event:     event.Name,
				Namespace: event.Namespace,
				Kind:      OrphanNeverSubscribed,
				Severity:  SeverityInfo,
				Message:   fmt.Sprintf("event %q has no subscribers", event.Name),
			})
		}
	}

	return orphaned
}

// detectIsolatedAgents emits isolated for agents with neither
// publications nor subscriptions. Builder-built models cannot contain
// such agents, but models assembled by other means may.
func (d *Detector) detectIsolatedAgents() []IsolatedAgent {
	isolated := make([]IsolatedAgent, 0)

	for _, agent := range d.model.agents {
		if len(d.model.publications[agent]) == 0 && len(d.model.subscriptions[agent]) == 0 {
			isolated = append(isolated, IsolatedAgent{
				Agent:     agent.Name,
				Namespace: agent.Namespace,
				Severity:  SeverityInfo,
				Message:   fmt.Sprintf("agent %q is isolated (no subscriptions or publications)", agent.Name),
			})
		}
	}

	return isolated
}
