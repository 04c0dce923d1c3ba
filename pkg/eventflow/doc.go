/*
Package eventflow builds a static dependency model of an event-driven
codebase from declared publish/subscribe relationships and analyzes that
model for structural problems.

# Model

Declarations of the form (agent, event, role) are accumulated in a Builder
and compiled into an immutable Model:

	model, err := eventflow.NewBuilder().
	    Publish(eventflow.Item{Name: "OrderAgent", Namespace: "orders"},
	        eventflow.Item{Name: "OrderPlaced", Namespace: "orders"}).
	    Subscribe(eventflow.Item{Name: "Billing", Namespace: "billing"},
	        eventflow.Item{Name: "OrderPlaced", Namespace: "orders"}).
	    Build()

The Model exposes the entity sets (agents, events, namespaces) and four
mappings (agent to published events, agent to subscribed events, event to
publishers, event to subscribers) as read-only queries. Construction is
deterministic: the same declaration sequence yields identical iteration
order everywhere.

# Anomaly Detection

A Detector runs three independent analyses over a Model:

  - orphaned events: never published (warning) or never subscribed (info)
  - isolated agents: no publications and no subscriptions (info)
  - cycles: circular triggering chains in the induced agent-to-agent
    graph (warning), reported once per elementary cycle with the events
    that produce each edge

	report, err := eventflow.NewDetector(model).DetectAll()

The Model is never mutated after Build, so a single instance can be shared
across concurrent Detector runs without synchronization.
*/
package eventflow
