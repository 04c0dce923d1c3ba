package dot

import (
	"fmt"
	"strings"
)

// TreeGenerator renders a hierarchical view of the event flow. Nodes
// are keyed by their full Name@Namespace identity so same-named items
// from different namespaces stay distinct; agent labels replace
// underscores with spaces for readability.
type TreeGenerator struct {
	opts Options
}

// NewTree creates a full-tree generator.
func NewTree(opts Options) Generator {
	return &TreeGenerator{opts: opts}
}

// Type implements Generator.
func (g *TreeGenerator) Type() string {
	return TypeFullTree
}

// Generate implements Generator.
func (g *TreeGenerator) Generate(a Analyzer) (string, error) {
	font := g.opts.font()

	var b strings.Builder
	b.WriteString("digraph EventFlow {\n")
	b.WriteString("    rankdir=TB;\n")
	b.WriteString("    splines=ortho;\n")
	fmt.Fprintf(&b, "    node [shape=box, style=\"filled,rounded\", fontname=%q, fontsize=10, color=\"#cccccc\"];\n", font)
	b.WriteString("    edge [arrowsize=0.8, color=\"#999999\"];\n")

	b.WriteString("\n    // Events\n")
	for _, event := range a.Events() {
		fmt.Fprintf(&b, "    %q [fillcolor=\"%s\", shape=ellipse, fontsize=10];\n",
			event.String(), defaultEventColor)
	}

	b.WriteString("\n    // Agents\n")
	for _, agent := range a.Agents() {
		label := strings.ReplaceAll(agent.Name, "_", " ")
		fmt.Fprintf(&b, "    %q [label=%q, fillcolor=\"%s\", shape=box, fontsize=10];\n",
			agent.String(), label, defaultAgentColor)
	}

	b.WriteString("\n    // Edges\n")
	for _, event := range a.Events() {
		for _, subscriber := range a.Subscribers(event) {
			fmt.Fprintf(&b, "    %q -> %q;\n", event.String(), subscriber.String())
		}
	}
	for _, agent := range a.Agents() {
		for _, event := range a.Publications(agent) {
			fmt.Fprintf(&b, "    %q -> %q;\n", agent.String(), event.String())
		}
	}

	b.WriteString("}\n")
	return b.String(), nil
}
