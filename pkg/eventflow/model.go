package eventflow

import (
	"errors"
	"sort"
	"sync"
)

// Builder accumulates publish/subscribe declarations for a Model.
// Use NewBuilder to create a builder, then chain Publish, Subscribe,
// or Add calls and finish with Build().
//
// Builder methods are safe for concurrent use, but declaration order
// determines the order of the model's mappings, so callers that need
// byte-identical models across runs should feed declarations from a
// single goroutine.
//
// Example:
//
//	model, err := eventflow.NewBuilder().
//	    Publish(producer, orderPlaced).
//	    Subscribe(billing, orderPlaced).
//	    Build()
type Builder struct {
	mu    sync.Mutex
	decls []Declaration
}

// NewBuilder creates an empty declaration builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Publish declares that agent publishes event.
// Returns the builder for method chaining.
func (b *Builder) Publish(agent, event Item) *Builder {
	return b.Add(Declaration{Agent: agent, Event: event, Role: RolePublish})
}

// Subscribe declares that agent subscribes to event.
// Returns the builder for method chaining.
func (b *Builder) Subscribe(agent, event Item) *Builder {
	return b.Add(Declaration{Agent: agent, Event: event, Role: RoleSubscribe})
}

// Add appends raw declarations in order.
// Returns the builder for method chaining.
func (b *Builder) Add(decls ...Declaration) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.decls = append(b.decls, decls...)
	return b
}

// AddPublications declares that agent publishes each of events, in order.
// This accepts the pre-grouped representation some extractors produce.
func (b *Builder) AddPublications(agent Item, events ...Item) *Builder {
	for _, event := range events {
		b.Publish(agent, event)
	}
	return b
}

// AddSubscriptions declares that agent subscribes to each of events, in order.
func (b *Builder) AddSubscriptions(agent Item, events ...Item) *Builder {
	for _, event := range events {
		b.Subscribe(agent, event)
	}
	return b
}

// Len returns the number of accumulated declarations.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.decls)
}

// Build validates the accumulated declarations and constructs an
// immutable Model. A declaration with an empty name or namespace on
// either side fails the whole build; every offending declaration is
// reported as a *ValidationError, joined together. No partial model is
// returned on error.
//
// Duplicate declarations are preserved as multiplicity: an agent that
// declares the same publication twice appears twice in the forward
// mapping and twice in the matching reverse mapping.
func (b *Builder) Build() (*Model, error) {
	b.mu.Lock()
	decls := make([]Declaration, len(b.decls))
	copy(decls, b.decls)
	b.mu.Unlock()

	var errs []error
	for i, d := range decls {
		if reason := validateDeclaration(d); reason != "" {
			errs = append(errs, &ValidationError{Index: i, Declaration: d, Reason: reason})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	m := &Model{
		publications:  make(map[Item][]Item),
		subscriptions: make(map[Item][]Item),
		publishers:    make(map[Item][]Item),
		subscribers:   make(map[Item][]Item),
	}

	agentSet := make(map[Item]struct{})
	eventSet := make(map[Item]struct{})

	for _, d := range decls {
		agentSet[d.Agent] = struct{}{}
		eventSet[d.Event] = struct{}{}

		switch d.Role {
		case RolePublish:
			m.publications[d.Agent] = append(m.publications[d.Agent], d.Event)
			m.publishers[d.Event] = append(m.publishers[d.Event], d.Agent)
		case RoleSubscribe:
			m.subscriptions[d.Agent] = append(m.subscriptions[d.Agent], d.Event)
			m.subscribers[d.Event] = append(m.subscribers[d.Event], d.Agent)
		}
	}

	m.agents = make([]Item, 0, len(agentSet))
	for a := range agentSet {
		m.agents = append(m.agents, a)
	}
	sortItems(m.agents)

	m.events = make([]Item, 0, len(eventSet))
	for e := range eventSet {
		m.events = append(m.events, e)
	}
	sortItems(m.events)

	nsSet := make(map[string]struct{})
	for a := range agentSet {
		nsSet[a.Namespace] = struct{}{}
	}
	for e := range eventSet {
		nsSet[e.Namespace] = struct{}{}
	}
	m.namespaces = make([]string, 0, len(nsSet))
	for ns := range nsSet {
		m.namespaces = append(m.namespaces, ns)
	}
	sort.Strings(m.namespaces)

	return m, nil
}

// validateDeclaration returns a non-empty reason if d is malformed.
func validateDeclaration(d Declaration) string {
	switch {
	case d.Agent.Name == "":
		return "agent name is empty"
	case d.Agent.Namespace == "":
		return "agent namespace is empty"
	case d.Event.Name == "":
		return "event name is empty"
	case d.Event.Namespace == "":
		return "event namespace is empty"
	case d.Role != RolePublish && d.Role != RoleSubscribe:
		return "unknown role"
	default:
		return ""
	}
}

// Model is the immutable event-flow model produced by Builder.Build().
// It holds the canonical entity sets and the four derived mappings.
// All query methods return fresh copies, so no caller can mutate the
// model through the exposed interface. A Model is safe to share across
// concurrent readers.
//
// A new declaration batch requires a new Model; there is no mutation
// API after construction.
type Model struct {
	agents     []Item   // sorted by (namespace, name)
	events     []Item   // sorted by (namespace, name)
	namespaces []string // sorted

	publications  map[Item][]Item // agent -> published events, declaration order
	subscriptions map[Item][]Item // agent -> subscribed events, declaration order
	publishers    map[Item][]Item // event -> publishing agents, declaration order
	subscribers   map[Item][]Item // event -> subscribing agents, declaration order
}

// Agents returns all agents with at least one declared relation,
// sorted by (namespace, name).
func (m *Model) Agents() []Item {
	return copyItems(m.agents)
}

// Events returns all events referenced by at least one relation,
// sorted by (namespace, name).
func (m *Model) Events() []Item {
	return copyItems(m.events)
}

// Namespaces returns the union of namespaces across agents and events,
// sorted.
func (m *Model) Namespaces() []string {
	out := make([]string, len(m.namespaces))
	copy(out, m.namespaces)
	return out
}

// Publications returns the events published by agent, in declaration
// order. Returns nil for an unknown agent.
func (m *Model) Publications(agent Item) []Item {
	return copyItems(m.publications[agent])
}

// Subscriptions returns the events agent subscribes to, in declaration
// order. Returns nil for an unknown agent.
func (m *Model) Subscriptions(agent Item) []Item {
	return copyItems(m.subscriptions[agent])
}

// Publishers returns the agents publishing event, in declaration order.
// Returns nil for an unknown event.
func (m *Model) Publishers(event Item) []Item {
	return copyItems(m.publishers[event])
}

// Subscribers returns the agents subscribed to event, in declaration
// order. Returns nil for an unknown event.
func (m *Model) Subscribers(event Item) []Item {
	return copyItems(m.subscribers[event])
}

// AllPublications returns a deep copy of the agent-to-published-events
// mapping.
func (m *Model) AllPublications() map[Item][]Item {
	return copyMapping(m.publications)
}

// AllSubscriptions returns a deep copy of the agent-to-subscribed-events
// mapping.
func (m *Model) AllSubscriptions() map[Item][]Item {
	return copyMapping(m.subscriptions)
}

// AllPublishers returns a deep copy of the event-to-publishers mapping.
func (m *Model) AllPublishers() map[Item][]Item {
	return copyMapping(m.publishers)
}

// AllSubscribers returns a deep copy of the event-to-subscribers mapping.
func (m *Model) AllSubscribers() map[Item][]Item {
	return copyMapping(m.subscribers)
}

// Connections returns the total number of relation entries in the model,
// counting multiplicity: subscriptions plus publications.
func (m *Model) Connections() int {
	total := 0
	for _, subs := range m.subscribers {
		total += len(subs)
	}
	for _, pubs := range m.publications {
		total += len(pubs)
	}
	return total
}

func copyItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func copyMapping(mapping map[Item][]Item) map[Item][]Item {
	out := make(map[Item][]Item, len(mapping))
	for k, v := range mapping {
		out[k] = copyItems(v)
	}
	return out
}
