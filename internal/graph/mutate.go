package graph

import (
	"fmt"
	"time"

	"github.com/loomworks/loom/internal/types"
)

// Mutators are free functions over workflow snapshots. Each returns a new
// snapshot on success; on failure it returns a *types.LoomError with a
// REF_* code and the input snapshot is left untouched. Callers that need
// rollback simply keep the old pointer.

// AddNode returns a new snapshot containing the given node.
// The node's config must agree with its kind; a nil config is replaced by
// the zero config for the kind.
func AddNode(w *Workflow, node *NodeRecord) (*Workflow, error) {
	if node == nil || node.ID == "" {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, "node must have an ID")
	}
	if !node.Kind.IsValid() {
		return nil, types.NewError(types.REF_CONFIG_KIND, fmt.Sprintf("unknown node kind %q", node.Kind))
	}
	if _, exists := w.Nodes[node.ID]; exists {
		return nil, types.NewError(types.REF_NODE_EXISTS, fmt.Sprintf("node %q already exists", node.ID))
	}
	if node.Config != nil && node.Config.Kind() != node.Kind {
		return nil, types.NewError(types.REF_CONFIG_KIND,
			fmt.Sprintf("node %q has kind %s but config kind %s", node.ID, node.Kind, node.Config.Kind()))
	}

	out := w.Clone()
	added := node.Clone()
	if added.Config == nil {
		cfg, err := NewConfig(added.Kind)
		if err != nil {
			return nil, err
		}
		added.Config = cfg
	}
	out.Nodes[added.ID] = added
	out.UpdatedAt = time.Now()
	return out, nil
}

// UpdateNode returns a new snapshot with the node replaced.
func UpdateNode(w *Workflow, node *NodeRecord) (*Workflow, error) {
	if node == nil || node.ID == "" {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, "node must have an ID")
	}
	if _, exists := w.Nodes[node.ID]; !exists {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, fmt.Sprintf("node %q does not exist", node.ID))
	}
	if node.Config != nil && node.Config.Kind() != node.Kind {
		return nil, types.NewError(types.REF_CONFIG_KIND,
			fmt.Sprintf("node %q has kind %s but config kind %s", node.ID, node.Kind, node.Config.Kind()))
	}

	out := w.Clone()
	out.Nodes[node.ID] = node.Clone()
	out.UpdatedAt = time.Now()
	return out, nil
}

// RemoveNode returns a new snapshot without the node. Edges incident to
// the node are removed with it; a start reference to the node is cleared.
func RemoveNode(w *Workflow, nodeID string) (*Workflow, error) {
	if _, exists := w.Nodes[nodeID]; !exists {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, fmt.Sprintf("node %q does not exist", nodeID))
	}

	out := w.Clone()
	delete(out.Nodes, nodeID)

	kept := out.Edges[:0]
	for _, e := range out.Edges {
		if e.Source != nodeID && e.Target != nodeID {
			kept = append(kept, e)
		}
	}
	out.Edges = kept

	if out.Start == nodeID {
		out.Start = ""
	}
	out.UpdatedAt = time.Now()
	return out, nil
}

// AddEdge returns a new snapshot containing an edge from source to target
// over the given handle. Both endpoints must exist; self-loops are only
// allowed on kinds that declare a self-referential port.
func AddEdge(w *Workflow, source, handle, target string) (*Workflow, error) {
	src, ok := w.Nodes[source]
	if !ok {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, fmt.Sprintf("source node %q does not exist", source))
	}
	if _, ok := w.Nodes[target]; !ok {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, fmt.Sprintf("target node %q does not exist", target))
	}
	if source == target && !src.Kind.AllowsSelfLoop() {
		return nil, types.NewError(types.REF_SELF_LOOP,
			fmt.Sprintf("node kind %s does not declare a self-referential port", src.Kind))
	}
	if w.HasEdge(source, handle, target) {
		return nil, types.NewError(types.REF_EDGE_EXISTS,
			fmt.Sprintf("edge %s already exists", EdgeID(source, handle, target)))
	}

	out := w.Clone()
	out.Edges = append(out.Edges, NewEdge(source, handle, target))
	out.UpdatedAt = time.Now()
	return out, nil
}

// RemoveEdge returns a new snapshot without the edge.
func RemoveEdge(w *Workflow, edgeID string) (*Workflow, error) {
	found := false
	for _, e := range w.Edges {
		if e.ID == edgeID {
			found = true
			break
		}
	}
	if !found {
		return nil, types.NewError(types.REF_EDGE_NOT_FOUND, fmt.Sprintf("edge %q does not exist", edgeID))
	}

	out := w.Clone()
	kept := out.Edges[:0]
	for _, e := range out.Edges {
		if e.ID != edgeID {
			kept = append(kept, e)
		}
	}
	out.Edges = kept
	out.UpdatedAt = time.Now()
	return out, nil
}

// SetStart returns a new snapshot with the start node set.
func SetStart(w *Workflow, nodeID string) (*Workflow, error) {
	if _, exists := w.Nodes[nodeID]; !exists {
		return nil, types.NewError(types.REF_NODE_NOT_FOUND, fmt.Sprintf("node %q does not exist", nodeID))
	}

	out := w.Clone()
	out.Start = nodeID
	out.UpdatedAt = time.Now()
	return out, nil
}
