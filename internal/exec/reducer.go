package exec

import "fmt"

// Apply folds one stream event into the state and returns the next
// state. It is a pure function: the input state is never mutated, so
// callers can hold snapshots across calls. Malformed events increment
// Malformed and change nothing else.
func Apply(state State, ev Event) State {
	next := state.Clone()
	if next.Nodes == nil {
		next.Nodes = make(map[string]NodeStatus)
	}

	if !ev.Type.IsValid() {
		next.Malformed++
		return next
	}
	if ev.ExecutionID != "" && state.ExecutionID != "" && ev.ExecutionID != state.ExecutionID {
		next.Malformed++
		return next
	}

	switch ev.Type {
	case EventNodeStarted:
		if ev.NodeID == "" {
			next.Malformed++
			return next
		}
		if prior := next.CurrentNode; prior != "" && prior != ev.NodeID && next.Nodes[prior] == NodeRunning {
			next.Logs = appendLog(next.Logs, LogEntry{
				Ts:      ev.Ts,
				NodeID:  ev.NodeID,
				Message: fmt.Sprintf("node %s started while node %s was still running", ev.NodeID, prior),
			}, next.LogCap)
		}
		next.Nodes[ev.NodeID] = NodeRunning
		next.CurrentNode = ev.NodeID
		if !next.Status.IsTerminal() {
			next.Status = StatusRunning
		}

	case EventNodeCompleted:
		if ev.NodeID == "" {
			next.Malformed++
			return next
		}
		next.Nodes[ev.NodeID] = NodeCompleted
		if next.CurrentNode == ev.NodeID {
			next.CurrentNode = ""
		}

	case EventNodeFailed:
		if ev.NodeID == "" {
			next.Malformed++
			return next
		}
		next.Nodes[ev.NodeID] = NodeFailed
		if next.CurrentNode == ev.NodeID {
			next.CurrentNode = ""
		}
		if ev.Log != "" {
			next.Logs = appendLog(next.Logs, LogEntry{Ts: ev.Ts, NodeID: ev.NodeID, Message: ev.Log}, next.LogCap)
		}

	case EventWorkflowPaused:
		if !next.Status.IsTerminal() {
			next.Status = StatusPaused
		}

	case EventWorkflowResumed:
		if !next.Status.IsTerminal() {
			next.Status = StatusRunning
		}

	case EventWorkflowCompleted:
		next.Status = StatusCompleted
		next.CurrentNode = ""
		for id, st := range next.Nodes {
			if st == NodePending || st == NodeRunning {
				next.Nodes[id] = NodeSkipped
			}
		}

	case EventWorkflowFailed:
		next.Status = StatusFailed
		if ev.Log != "" {
			next.Logs = appendLog(next.Logs, LogEntry{Ts: ev.Ts, NodeID: ev.NodeID, Message: ev.Log}, next.LogCap)
		}

	case EventContextUpdated:
		next.Context = cloneAnyMap(ev.Context)

	case EventLog:
		if ev.Log == "" {
			next.Malformed++
			return next
		}
		next.Logs = appendLog(next.Logs, LogEntry{Ts: ev.Ts, NodeID: ev.NodeID, Message: ev.Log}, next.LogCap)
	}

	// A full node state map on any event replaces the local view.
	if len(ev.NodeState) > 0 {
		nodes := make(map[string]NodeStatus, len(ev.NodeState))
		for id, st := range ev.NodeState {
			nodes[id] = st
		}
		next.Nodes = nodes
	}
	if ev.CurrentNodeID != "" {
		next.CurrentNode = ev.CurrentNodeID
	}
	if ev.Status != "" {
		switch st := Status(ev.Status); st {
		case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
			next.Status = st
		}
	}
	return next
}

// appendLog adds an entry to the log ring, dropping the oldest entries
// once the capacity is exceeded.
func appendLog(logs []LogEntry, entry LogEntry, capacity int) []LogEntry {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	logs = append(logs, entry)
	if over := len(logs) - capacity; over > 0 {
		trimmed := make([]LogEntry, capacity)
		copy(trimmed, logs[over:])
		return trimmed
	}
	return logs
}
