package scanner

import "github.com/randalmurphal/eventflow/pkg/eventflow"

// Stats summarizes the scanned model.
type Stats struct {
	Events      int `json:"events"`
	Agents      int `json:"agents"`
	Connections int `json:"connections"`
}

// Anomalies carries the detection results alongside a graph push. The
// whole section is omitted when detection was skipped.
type Anomalies struct {
	Summary eventflow.Summary `json:"summary"`
	Details *eventflow.Report `json:"details"`
}

// Payload is the body POSTed to the graph API for one graph type.
type Payload struct {
	GraphType  string     `json:"graph_type"`
	DotContent string     `json:"dot_content"`
	Stats      Stats      `json:"stats"`
	Namespaces []string   `json:"namespaces,omitempty"`
	Anomalies  *Anomalies `json:"anomalies,omitempty"`
}
