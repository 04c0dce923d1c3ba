package eventflow

import (
	"fmt"
	"slices"
	"strings"
)

// detectCycles enumerates cycles in the directed agent-to-agent graph
// induced by publish/subscribe chaining: an edge A -> B exists iff some
// event published by A is subscribed to by B.
//
// The traversal is a depth-first search with a recursion stack; a back
// edge to a node on the stack yields the cycle formed by the stack
// slice from that node to the top. Agents and successors are visited in
// (namespace, name) order, cycles are normalized to a canonical
// rotation and deduplicated by value, so the same elementary cycle is
// reported exactly once regardless of traversal entry point.
//
// Dense graphs with many shared events pay for the per-cycle path
// reconstruction on top of the O(V+E) traversal.
func (d *Detector) detectCycles() []Cycle {
	adj := d.buildAgentGraph()

	visited := make(map[Item]bool, len(d.model.agents))
	onStack := make(map[Item]bool, len(d.model.agents))
	var path []Item

	seen := make(map[string]struct{})
	var found [][]Item

	var dfs func(agent Item)
	dfs = func(agent Item) {
		visited[agent] = true
		onStack[agent] = true
		path = append(path, agent)

		for _, next := range adj[agent] {
			if !visited[next] {
				dfs(next)
				continue
			}
			if !onStack[next] {
				continue
			}

			start := slices.Index(path, next)
			cycle := canonicalRotation(path[start:])
			key := cycleKey(cycle)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				found = append(found, cycle)
			}
		}

		path = path[:len(path)-1]
		onStack[agent] = false
	}

	for _, agent := range d.model.agents {
		if !visited[agent] {
			dfs(agent)
		}
	}

	slices.SortFunc(found, compareItemSlices)

	cycles := make([]Cycle, 0, len(found))
	for _, cycle := range found {
		cycles = append(cycles, d.buildCycle(cycle))
	}
	return cycles
}

// buildAgentGraph derives the induced agent graph with sorted, unique
// successor lists. Self-edges are kept only when the self-loop policy
// is enabled.
func (d *Detector) buildAgentGraph() map[Item][]Item {
	adj := make(map[Item][]Item, len(d.model.agents))

	for _, agent := range d.model.agents {
		targets := make(map[Item]struct{})
		for _, event := range d.model.publications[agent] {
			for _, sub := range d.model.subscribers[event] {
				if sub == agent && !d.selfLoops {
					continue
				}
				targets[sub] = struct{}{}
			}
		}
		if len(targets) == 0 {
			continue
		}

		succ := make([]Item, 0, len(targets))
		for t := range targets {
			succ = append(succ, t)
		}
		sortItems(succ)
		adj[agent] = succ
	}

	return adj
}

// buildCycle enriches a canonical cycle with namespaces and the event
// names producing each edge.
func (d *Detector) buildCycle(agents []Item) Cycle {
	steps := make([]CycleStep, len(agents))
	names := make([]string, len(agents))

	for i, current := range agents {
		next := agents[(i+1)%len(agents)]

		var events []string
		emitted := make(map[string]struct{})
		for _, event := range d.model.publications[current] {
			if !slices.Contains(d.model.subscribers[event], next) {
				continue
			}
			if _, dup := emitted[event.Name]; dup {
				continue
			}
			emitted[event.Name] = struct{}{}
			events = append(events, event.Name)
		}

		steps[i] = CycleStep{
			Agent:     current.Name,
			Namespace: current.Namespace,
			Publishes: events,
		}
		names[i] = current.Name
	}

	return Cycle{
		Agents:   names,
		Path:     steps,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("circular dependency detected: %s -> %s",
			strings.Join(names, " -> "), names[0]),
	}
}

// canonicalRotation returns a copy of the cycle rotated to start at its
// lexicographically smallest agent.
func canonicalRotation(cycle []Item) []Item {
	smallest := 0
	for i := 1; i < len(cycle); i++ {
		if cycle[i].Less(cycle[smallest]) {
			smallest = i
		}
	}

	out := make([]Item, 0, len(cycle))
	out = append(out, cycle[smallest:]...)
	out = append(out, cycle[:smallest]...)
	return out
}

// cycleKey builds a value-equality key for a canonical cycle.
func cycleKey(cycle []Item) string {
	var b strings.Builder
	for i, item := range cycle {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(item.Namespace)
		b.WriteByte('/')
		b.WriteString(item.Name)
	}
	return b.String()
}

// compareItemSlices orders cycles element-wise, shorter first on ties.
func compareItemSlices(a, b []Item) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareItems(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
