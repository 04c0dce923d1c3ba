package eventflow

import "slices"

// Item identifies an agent or an event by name within a namespace.
// Two items are equal iff both fields match exactly (case-sensitive).
// Item is a comparable value type and can be used as a map key.
//
// Whether an Item is an agent or an event is determined by which
// mapping it appears in, not by its type.
type Item struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// String returns the item as "Name@Namespace".
func (i Item) String() string {
	return i.Name + "@" + i.Namespace
}

// Less reports whether i orders before other, lexicographically by
// (namespace, name). This ordering is used everywhere deterministic
// output is required.
func (i Item) Less(other Item) bool {
	if i.Namespace != other.Namespace {
		return i.Namespace < other.Namespace
	}
	return i.Name < other.Name
}

// compareItems is the cmp-style form of Item.Less for slices.SortFunc.
func compareItems(a, b Item) int {
	if a.Namespace != b.Namespace {
		if a.Namespace < b.Namespace {
			return -1
		}
		return 1
	}
	switch {
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	default:
		return 0
	}
}

// sortItems sorts items in place by (namespace, name).
func sortItems(items []Item) {
	slices.SortFunc(items, compareItems)
}

// Role distinguishes the two sides of a pub/sub declaration.
type Role int

const (
	// RolePublish declares that the agent publishes the event.
	RolePublish Role = iota

	// RoleSubscribe declares that the agent subscribes to the event.
	RoleSubscribe
)

// String returns "publish" or "subscribe".
func (r Role) String() string {
	switch r {
	case RolePublish:
		return "publish"
	case RoleSubscribe:
		return "subscribe"
	default:
		return "unknown"
	}
}

// Declaration is a single raw (agent, event, role) relationship as
// produced by source extraction.
type Declaration struct {
	Agent Item `json:"agent"`
	Event Item `json:"event"`
	Role  Role `json:"role"`
}
