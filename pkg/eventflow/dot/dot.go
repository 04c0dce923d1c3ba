// Package dot renders an analyzed event-flow model as Graphviz DOT.
//
// Generators depend only on the Analyzer interface, a narrow read-only
// view of the model; they cannot mutate it. New graph styles implement
// Generator and are wired in by the composition root, typically through
// a registry of factories keyed by graph type.
package dot

import "github.com/randalmurphal/eventflow/pkg/eventflow"

// Graph type identifiers for the built-in generators.
const (
	TypeComplete = "complete"
	TypeFullTree = "full-tree"
)

// Analyzer is the read-only capability a generator needs from an
// analyzed model: the three entity sets and the four mappings.
// *eventflow.Model satisfies it.
type Analyzer interface {
	Agents() []eventflow.Item
	Events() []eventflow.Item
	Namespaces() []string
	Publications(agent eventflow.Item) []eventflow.Item
	Subscriptions(agent eventflow.Item) []eventflow.Item
	Publishers(event eventflow.Item) []eventflow.Item
	Subscribers(event eventflow.Item) []eventflow.Item
}

// Compile-time interface check.
var _ Analyzer = (*eventflow.Model)(nil)

// Options carry per-namespace styling shared by all generators.
type Options struct {
	// Colors maps namespace names to hex fill colors.
	Colors map[string]string

	// Shapes maps namespace names to Graphviz node shapes for events.
	Shapes map[string]string

	// FontName is the font for graph text elements. Defaults to Arial.
	FontName string
}

// font returns the configured font or the default.
func (o Options) font() string {
	if o.FontName == "" {
		return "Arial"
	}
	return o.FontName
}

// Generator renders an analyzed model into DOT content.
type Generator interface {
	// Type returns the graph type identifier (e.g. "complete").
	Type() string

	// Generate renders the model. Output is deterministic: the same
	// model yields byte-identical DOT.
	Generate(a Analyzer) (string, error)
}

// Factory constructs a Generator with styling options. Composition
// roots register factories by graph type.
type Factory func(opts Options) Generator

// Default node styling shared by the built-in generators.
const (
	defaultEventColor = "#e0e0e0"
	defaultAgentColor = "#ffcc80"
	defaultEventShape = "ellipse"
)
