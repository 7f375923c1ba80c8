package graph

import (
	"sort"
	"time"
)

// Reference is a named external reference from the flow module header,
// analogous to an import: `use triage from "loom/agents/triage"`.
type Reference struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Workflow represents a complete workflow definition as a directed graph.
// It is a pure data snapshot: the mutators in this package return new
// snapshots rather than editing one in place.
type Workflow struct {
	// ID is the workflow's identifier, a human-chosen slug such as
	// "incident-pipeline".
	ID string `json:"id"`

	// Name is a human-readable display name.
	Name string `json:"name,omitempty"`

	// Description provides additional context about what the workflow does.
	Description string `json:"description,omitempty"`

	// Context is the initial shared key-value context passed to the run.
	Context map[string]any `json:"context,omitempty"`

	// Env optionally names one of References as the execution environment.
	Env string `json:"env,omitempty"`

	// References is the ordered header block of named external references.
	References []Reference `json:"references,omitempty"`

	// Nodes contains all nodes, indexed by node ID.
	Nodes map[string]*NodeRecord `json:"nodes"`

	// Edges contains all directed edges between nodes.
	Edges []EdgeRecord `json:"edges"`

	// Start is the ID of the node where execution begins.
	Start string `json:"start"`

	// CreatedAt and UpdatedAt are session timestamps. They do not
	// serialize to flow-module text.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty workflow with the given ID.
func New(id string) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:        id,
		Nodes:     make(map[string]*NodeRecord),
		Edges:     []EdgeRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetNode returns the node with the given ID, or false if absent.
func (w *Workflow) GetNode(id string) (*NodeRecord, bool) {
	node, ok := w.Nodes[id]
	return node, ok
}

// GetEdge returns the edge with the given ID, or false if absent.
func (w *Workflow) GetEdge(id string) (EdgeRecord, bool) {
	for _, e := range w.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return EdgeRecord{}, false
}

// HasEdge reports whether an edge with the given endpoints and handle exists.
func (w *Workflow) HasEdge(source, handle, target string) bool {
	_, ok := w.GetEdge(EdgeID(source, handle, target))
	return ok
}

// NodeIDs returns all node IDs in lexicographic order.
func (w *Workflow) NodeIDs() []string {
	ids := make([]string, 0, len(w.Nodes))
	for id := range w.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OutgoingEdges returns the edges originating at the given node, in
// stored order.
func (w *Workflow) OutgoingEdges(nodeID string) []EdgeRecord {
	var out []EdgeRecord
	for _, e := range w.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns the edges terminating at the given node, in
// stored order.
func (w *Workflow) IncomingEdges(nodeID string) []EdgeRecord {
	var in []EdgeRecord
	for _, e := range w.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// EntryNodes returns the IDs of nodes with no incoming edges, sorted.
func (w *Workflow) EntryNodes() []string {
	hasIncoming := make(map[string]bool, len(w.Nodes))
	for _, e := range w.Edges {
		hasIncoming[e.Target] = true
	}

	var entries []string
	for id := range w.Nodes {
		if !hasIncoming[id] {
			entries = append(entries, id)
		}
	}
	sort.Strings(entries)
	return entries
}

// ExitNodes returns the IDs of nodes with no outgoing edges, sorted.
func (w *Workflow) ExitNodes() []string {
	hasOutgoing := make(map[string]bool, len(w.Nodes))
	for _, e := range w.Edges {
		hasOutgoing[e.Source] = true
	}

	var exits []string
	for id := range w.Nodes {
		if !hasOutgoing[id] {
			exits = append(exits, id)
		}
	}
	sort.Strings(exits)
	return exits
}

// GetReference returns the named header reference, or false if absent.
func (w *Workflow) GetReference(name string) (Reference, bool) {
	for _, r := range w.References {
		if r.Name == name {
			return r, true
		}
	}
	return Reference{}, false
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	out.Context = cloneAnyMap(w.Context)

	if w.References != nil {
		out.References = make([]Reference, len(w.References))
		copy(out.References, w.References)
	}

	out.Nodes = make(map[string]*NodeRecord, len(w.Nodes))
	for id, node := range w.Nodes {
		out.Nodes[id] = node.Clone()
	}

	out.Edges = make([]EdgeRecord, len(w.Edges))
	copy(out.Edges, w.Edges)

	return &out
}
