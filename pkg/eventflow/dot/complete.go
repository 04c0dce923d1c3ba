package dot

import (
	"fmt"
	"strings"
)

// CompleteGenerator renders the whole event flow: every event and agent
// node with namespace-based styling, subscription edges from events to
// their subscribers, publication edges from agents to their events.
type CompleteGenerator struct {
	opts Options
}

// NewComplete creates a complete-graph generator.
func NewComplete(opts Options) Generator {
	return &CompleteGenerator{opts: opts}
}

// Type implements Generator.
func (g *CompleteGenerator) Type() string {
	return TypeComplete
}

// Generate implements Generator.
func (g *CompleteGenerator) Generate(a Analyzer) (string, error) {
	font := g.opts.font()

	var b strings.Builder
	b.WriteString("digraph EventFlow {\n")
	fmt.Fprintf(&b, "    graph [fontname=%q];\n", font)
	b.WriteString("    rankdir=TB;\n")
	fmt.Fprintf(&b, "    node [shape=box, style=\"filled,rounded\", fontname=%q, fontsize=10];\n", font)
	fmt.Fprintf(&b, "    edge [arrowsize=0.8, fontname=%q];\n", font)

	b.WriteString("\n    // Events\n")
	for _, event := range a.Events() {
		color := g.opts.Colors[event.Namespace]
		if color == "" {
			color = defaultEventColor
		}
		shape := g.opts.Shapes[event.Namespace]
		if shape == "" {
			shape = defaultEventShape
		}
		fmt.Fprintf(&b, "    %q [fillcolor=%q, shape=%s, class=\"namespace-%s\"];\n",
			event.Name, color, shape, event.Namespace)
	}

	b.WriteString("\n    // Agents\n")
	for _, agent := range a.Agents() {
		color := g.opts.Colors[agent.Namespace]
		if color == "" {
			color = defaultAgentColor
		}
		fmt.Fprintf(&b, "    %q [fillcolor=%q, class=\"namespace-%s\"];\n",
			agent.Name, color, agent.Namespace)
	}

	b.WriteString("\n    // Edges\n")
	for _, event := range a.Events() {
		for _, subscriber := range a.Subscribers(event) {
			fmt.Fprintf(&b, "    %q -> %q;\n", event.Name, subscriber.Name)
		}
	}
	for _, agent := range a.Agents() {
		for _, event := range a.Publications(agent) {
			fmt.Fprintf(&b, "    %q -> %q;\n", agent.Name, event.Name)
		}
	}

	b.WriteString("}\n")
	return b.String(), nil
}
