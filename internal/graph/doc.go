// Package graph holds the in-memory model of a workflow: nodes, edges,
// header references, and shared context, plus the pure operations that
// create, mutate, and analyze snapshots of it.
//
// # Core Architecture
//
// The package is built around a small set of value types:
//
//   - Workflow: a complete graph snapshot (nodes, edges, start, context)
//   - NodeRecord: a single node with a kind tag and a typed config
//   - NodeConfig: the tagged-union configuration, one concrete type per kind
//   - EdgeRecord: a directed edge with an optional typed source handle
//   - WorkflowBuilder: fluent API for programmatically constructing workflows
//   - CycleReport: the result of simple-cycle enumeration
//
// # Snapshot Semantics
//
// Workflows are treated as immutable snapshots. The mutators (AddNode,
// UpdateNode, RemoveNode, AddEdge, RemoveEdge, SetStart) never modify
// their input; they return a fresh snapshot on success or a typed
// reference error on failure, leaving the prior snapshot untouched:
//
//	next, err := graph.AddEdge(current, "fetch", graph.HandleDefault, "notify")
//	if err != nil {
//	    // current is still valid and unchanged
//	}
//
// This keeps undo, preview, and concurrent reads trivial: holders of old
// pointers are never surprised.
//
// # Node Kinds
//
// The kind set is closed. Each kind pins the concrete type of the node's
// config (an HTTP node always carries *HTTPConfig, and so on), and every
// consumer switches exhaustively over the set. Two kinds are special:
// end nodes are terminal and may not have outgoing edges, and eval nodes
// are the only kind allowed to target themselves (poll-until loops).
//
// # Cycle Detection
//
// FindCycles enumerates simple cycles with a depth-first search over the
// edge list, emitting a cycle each time a back-edge reaches a node still
// on the recursion stack. Enumeration is deterministic for a fixed edge
// ordering and capped (DefaultCycleLimit) because pathological graphs
// hold exponentially many simple cycles; truncation is flagged on the
// report rather than silently dropped.
package graph
