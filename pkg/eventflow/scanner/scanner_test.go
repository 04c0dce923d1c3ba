package scanner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/dot"
	"github.com/randalmurphal/eventflow/pkg/eventflow/history"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// fixtureTree writes a small source tree: two agents wired in a cycle
// through two namespaced events, plus one event nobody publishes.
func fixtureTree(t *testing.T) (agentsDir, eventsDir string) {
	t.Helper()
	root := t.TempDir()
	agentsDir = filepath.Join(root, "agents")
	eventsDir = filepath.Join(root, "events")

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write(filepath.Join(eventsDir, "orders", "events.go"), "package orders\n\ntype OrderPlaced struct{}\ntype OrderShipped struct{}\n")
	write(filepath.Join(eventsDir, "billing", "events.go"), "package billing\n\ntype InvoiceIssued struct{}\n")

	write(filepath.Join(agentsDir, "order_service.go"), `package agents

func (a *OrderService) Run() {
	a.bus.Subscribe(InvoiceIssued, a.onInvoice)
	a.bus.Subscribe(OrderShipped, a.onShipped)
	a.bus.Publish(OrderPlaced{})
}
`)
	write(filepath.Join(agentsDir, "billing.go"), `package agents

func (a *Billing) Run() {
	a.bus.Subscribe(OrderPlaced, a.onOrder)
	a.bus.Publish(InvoiceIssued{})
}
`)
	return agentsDir, eventsDir
}

// graphServer records every payload POSTed to /api/graph and responds
// with the given status per graph type (default 201).
type graphServer struct {
	mu       sync.Mutex
	payloads []Payload
	statuses map[string]int
	server   *httptest.Server
}

func newGraphServer(t *testing.T) *graphServer {
	t.Helper()
	gs := &graphServer{statuses: make(map[string]int)}
	gs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/graph", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))

		gs.mu.Lock()
		gs.payloads = append(gs.payloads, p)
		status, ok := gs.statuses[p.GraphType]
		gs.mu.Unlock()
		if !ok {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		if status == http.StatusCreated {
			json.NewEncoder(w).Encode(map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)})
		}
	}))
	t.Cleanup(gs.server.Close)
	return gs
}

func (gs *graphServer) byType() map[string]Payload {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make(map[string]Payload, len(gs.payloads))
	for _, p := range gs.payloads {
		out[p.GraphType] = p
	}
	return out
}

func newGenerators() *registry.Registry[dot.Factory] {
	generators := registry.New[dot.Factory]()
	generators.Register(dot.TypeComplete, dot.NewComplete)
	generators.Register(dot.TypeFullTree, dot.NewTree)
	return generators
}

func testConfig(agentsDir, eventsDir, apiURL string) config.Scanner {
	return config.Scanner{
		AgentsDir:  agentsDir,
		EventsDir:  eventsDir,
		APIURL:     apiURL,
		GraphTypes: []string{dot.TypeComplete, dot.TypeFullTree},
		FontName:   config.DefaultFontName,
	}
}

// TestScanner_Scan verifies the full pipeline: both graph types pushed
// with stats, namespaces, and the anomalies section.
func TestScanner_Scan(t *testing.T) {
	agentsDir, eventsDir := fixtureTree(t)
	gs := newGraphServer(t)

	s := New(testConfig(agentsDir, eventsDir, gs.server.URL), newGenerators())
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Events)
	assert.Equal(t, 2, result.Agents)
	assert.True(t, result.AllPushed())

	payloads := gs.byType()
	require.Len(t, payloads, 2)

	complete := payloads[dot.TypeComplete]
	assert.Contains(t, complete.DotContent, "digraph EventFlow {")
	assert.Equal(t, Stats{Events: 3, Agents: 2, Connections: 5}, complete.Stats)
	assert.ElementsMatch(t, []string{"billing", "orders"}, complete.Namespaces)

	require.NotNil(t, complete.Anomalies)
	// One orphan (OrderShipped is never published) plus the two-agent
	// cycle through OrderPlaced and InvoiceIssued.
	assert.Equal(t, 1, complete.Anomalies.Summary.OrphanedEvents)
	assert.Equal(t, 1, complete.Anomalies.Summary.Cycles)
	assert.Equal(t, 0, complete.Anomalies.Summary.IsolatedAgents)
	require.NotNil(t, complete.Anomalies.Details)
	assert.Len(t, complete.Anomalies.Details.Cycles, 1)

	tree := payloads[dot.TypeFullTree]
	assert.Contains(t, tree.DotContent, "splines=ortho;")
	assert.Equal(t, complete.Stats, tree.Stats)

	require.NotNil(t, result.Report)
	assert.Equal(t, 2, result.Report.Summary.Total)
}

// TestScanner_Scan_NoEventsDir verifies namespaces are omitted when no
// events directory is configured.
func TestScanner_Scan_NoEventsDir(t *testing.T) {
	agentsDir, _ := fixtureTree(t)
	gs := newGraphServer(t)

	s := New(testConfig(agentsDir, "", gs.server.URL), newGenerators())
	result, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, result.AllPushed())

	for _, p := range gs.byType() {
		assert.Nil(t, p.Namespaces)
	}
}

// TestScanner_Scan_PartialPushFailure verifies a failing graph type is
// reported without failing the scan.
func TestScanner_Scan_PartialPushFailure(t *testing.T) {
	agentsDir, eventsDir := fixtureTree(t)
	gs := newGraphServer(t)
	gs.statuses[dot.TypeFullTree] = http.StatusInternalServerError

	s := New(testConfig(agentsDir, eventsDir, gs.server.URL), newGenerators())
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Pushed[dot.TypeComplete])
	assert.False(t, result.Pushed[dot.TypeFullTree])
	assert.False(t, result.AllPushed())
}

// TestScanner_Scan_UnknownGraphType verifies an unregistered graph type
// is marked failed and never reaches the API.
func TestScanner_Scan_UnknownGraphType(t *testing.T) {
	agentsDir, eventsDir := fixtureTree(t)
	gs := newGraphServer(t)

	cfg := testConfig(agentsDir, eventsDir, gs.server.URL)
	cfg.GraphTypes = []string{dot.TypeComplete, "sequence"}

	s := New(cfg, newGenerators())
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Pushed[dot.TypeComplete])
	assert.False(t, result.Pushed["sequence"])
	assert.Len(t, gs.byType(), 1)
}

// TestScanner_Scan_MissingAgentsDir verifies extraction failure aborts
// the scan.
func TestScanner_Scan_MissingAgentsDir(t *testing.T) {
	gs := newGraphServer(t)

	s := New(testConfig(filepath.Join(t.TempDir(), "nope"), "", gs.server.URL), newGenerators())
	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.Empty(t, gs.byType())
}

// TestScanner_Scan_RecordsHistory verifies the run lands in the history
// store.
func TestScanner_Scan_RecordsHistory(t *testing.T) {
	agentsDir, eventsDir := fixtureTree(t)
	gs := newGraphServer(t)
	store := history.NewMemoryStore()
	defer store.Close()

	s := New(testConfig(agentsDir, eventsDir, gs.server.URL), newGenerators(), WithHistory(store))
	result, err := s.Scan(context.Background())
	require.NoError(t, err)

	rec, err := store.Load(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Events)
	assert.Equal(t, 2, rec.Agents)
	assert.Equal(t, 2, rec.Anomalies)
	assert.Contains(t, string(rec.Report), "circular dependency detected")
}

// TestScanner_Run_RequiresInterval verifies continuous mode rejects a
// zero interval.
func TestScanner_Run_RequiresInterval(t *testing.T) {
	agentsDir, _ := fixtureTree(t)

	s := New(testConfig(agentsDir, "", "http://localhost:0"), newGenerators())
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
}

// TestScanner_Run_StopsOnCancel verifies the loop scans at least once
// and exits on context cancellation.
func TestScanner_Run_StopsOnCancel(t *testing.T) {
	agentsDir, eventsDir := fixtureTree(t)
	gs := newGraphServer(t)

	cfg := testConfig(agentsDir, eventsDir, gs.server.URL)
	cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s := New(cfg, newGenerators())
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(gs.byType()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scanner did not stop after cancel")
	}
}
