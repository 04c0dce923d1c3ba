package eventflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, b *Builder) *Model {
	t.Helper()
	model, err := b.Build()
	require.NoError(t, err)
	return model
}

func mustDetect(t *testing.T, model *Model, opts ...DetectorOption) *Report {
	t.Helper()
	report, err := NewDetector(model, opts...).DetectAll()
	require.NoError(t, err)
	return report
}

// TestNewDetector_NilModel verifies detector construction panics
// without a model.
func TestNewDetector_NilModel(t *testing.T) {
	assert.PanicsWithValue(t, "eventflow: model cannot be nil", func() {
		NewDetector(nil)
	})
}

// TestDetector_NeverSubscribed covers scenario A: a published event
// with no subscribers yields exactly one never_subscribed info entry
// and nothing else.
func TestDetector_NeverSubscribed(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	report := mustDetect(t, mustBuild(t, NewBuilder().Publish(p, e)))

	require.Len(t, report.OrphanedEvents, 1)
	orphan := report.OrphanedEvents[0]
	assert.Equal(t, "E", orphan.Event)
	assert.Equal(t, "ns1", orphan.Namespace)
	assert.Equal(t, OrphanNeverSubscribed, orphan.Kind)
	assert.Equal(t, SeverityInfo, orphan.Severity)
	assert.Contains(t, orphan.Message, `"E"`)

	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.IsolatedAgents)
	assert.Equal(t, Summary{OrphanedEvents: 1, Total: 1}, report.Summary)
}

// TestDetector_NeverPublished verifies the warning side of orphan
// detection.
func TestDetector_NeverPublished(t *testing.T) {
	s := Item{Name: "S", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	report := mustDetect(t, mustBuild(t, NewBuilder().Subscribe(s, e)))

	require.Len(t, report.OrphanedEvents, 1)
	orphan := report.OrphanedEvents[0]
	assert.Equal(t, OrphanNeverPublished, orphan.Kind)
	assert.Equal(t, SeverityWarning, orphan.Severity)
	assert.Contains(t, orphan.Message, "never published")
}

// TestDetector_OrphanExclusivity verifies never_published and
// never_subscribed are not both emitted for an event with at least one
// relation of either kind.
func TestDetector_OrphanExclusivity(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	s := Item{Name: "S", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	lone := Item{Name: "Lone", Namespace: "ns1"}

	report := mustDetect(t, mustBuild(t, NewBuilder().
		Publish(p, e).
		Subscribe(s, e).
		Publish(p, lone)))

	byEvent := map[string]int{}
	for _, o := range report.OrphanedEvents {
		byEvent[o.Event]++
	}
	assert.Equal(t, 0, byEvent["E"])
	assert.Equal(t, 1, byEvent["Lone"])
}

// TestDetector_IsolatedAgent covers scenario C: an agent entering the
// model through an alternate path with no relations at all is reported
// as isolated. Builder-built models cannot produce this, so the model
// is assembled directly.
func TestDetector_IsolatedAgent(t *testing.T) {
	idle := Item{Name: "Idle", Namespace: "ns2"}
	model := &Model{
		agents:        []Item{idle},
		namespaces:    []string{"ns2"},
		publications:  map[Item][]Item{},
		subscriptions: map[Item][]Item{},
		publishers:    map[Item][]Item{},
		subscribers:   map[Item][]Item{},
	}

	report := mustDetect(t, model)

	require.Len(t, report.IsolatedAgents, 1)
	isolated := report.IsolatedAgents[0]
	assert.Equal(t, "Idle", isolated.Agent)
	assert.Equal(t, "ns2", isolated.Namespace)
	assert.Equal(t, SeverityInfo, isolated.Severity)
	assert.Equal(t, Summary{IsolatedAgents: 1, Total: 1}, report.Summary)
}

// TestDetector_NoIsolatedFromBuilder verifies agents with any relation
// are never reported as isolated.
func TestDetector_NoIsolatedFromBuilder(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	report := mustDetect(t, mustBuild(t, NewBuilder().Publish(p, e)))
	assert.Empty(t, report.IsolatedAgents)
}

// TestDetector_SummaryReconciliation verifies the summary counts equal
// the section lengths and sum to the total.
func TestDetector_SummaryReconciliation(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	s := Item{Name: "S", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	f := Item{Name: "F", Namespace: "ns1"}
	dead := Item{Name: "Dead", Namespace: "ns1"}

	model := mustBuild(t, NewBuilder().
		Publish(p, e).
		Subscribe(s, e).
		Publish(s, f).
		Subscribe(p, f).
		Subscribe(s, dead))

	detector := NewDetector(model)
	report, err := detector.DetectAll()
	require.NoError(t, err)

	assert.Equal(t, len(report.OrphanedEvents), report.Summary.OrphanedEvents)
	assert.Equal(t, len(report.Cycles), report.Summary.Cycles)
	assert.Equal(t, len(report.IsolatedAgents), report.Summary.IsolatedAgents)
	assert.Equal(t,
		report.Summary.OrphanedEvents+report.Summary.Cycles+report.Summary.IsolatedAgents,
		report.Summary.Total)

	summary, err := detector.Summary()
	require.NoError(t, err)
	assert.Equal(t, report.Summary, summary)
}

// TestDetector_Deterministic verifies two detection runs over the same
// model produce byte-identical reports.
func TestDetector_Deterministic(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	s := Item{Name: "S", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	f := Item{Name: "F", Namespace: "ns1"}
	ghost := Item{Name: "Ghost", Namespace: "ns2"}

	model := mustBuild(t, NewBuilder().
		Publish(p, e).
		Subscribe(s, e).
		Publish(s, f).
		Subscribe(p, f).
		Subscribe(p, ghost))

	detector := NewDetector(model)
	first, err := detector.DetectAll()
	require.NoError(t, err)
	second, err := detector.DetectAll()
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

// TestReport_JSONShape verifies the report serializes with the stable
// key layout downstream payloads embed.
func TestReport_JSONShape(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}
	report := mustDetect(t, mustBuild(t, NewBuilder().Publish(p, e)))

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "orphaned_events")
	assert.Contains(t, decoded, "cycles")
	assert.Contains(t, decoded, "isolated_agents")
	assert.Contains(t, decoded, "summary")

	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, summary, "orphaned_events_count")
	assert.Contains(t, summary, "cycles_count")
	assert.Contains(t, summary, "isolated_agents_count")
	assert.Contains(t, summary, "total_anomalies")

	// Empty sections serialize as [] so merging into a larger payload
	// stays purely additive.
	assert.Contains(t, string(data), `"cycles":[]`)
	assert.Contains(t, string(data), `"isolated_agents":[]`)
}

// TestDetector_CleanModel verifies a fully wired model yields an empty
// report.
func TestDetector_CleanModel(t *testing.T) {
	p := Item{Name: "P", Namespace: "ns1"}
	s := Item{Name: "S", Namespace: "ns1"}
	e := Item{Name: "E", Namespace: "ns1"}

	report := mustDetect(t, mustBuild(t, NewBuilder().
		Publish(p, e).
		Subscribe(s, e)))

	assert.Equal(t, Summary{}, report.Summary)
	assert.Empty(t, report.OrphanedEvents)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.IsolatedAgents)
}
