package exec

import "time"

// EventType tags an inbound execution stream event.
type EventType string

const (
	// EventNodeStarted marks a node as the currently running node.
	EventNodeStarted EventType = "node_started"

	// EventNodeCompleted marks a node as finished successfully.
	EventNodeCompleted EventType = "node_completed"

	// EventNodeFailed marks a node as failed. The run itself keeps its
	// status; a separate workflow_failed event ends the run.
	EventNodeFailed EventType = "node_failed"

	// EventWorkflowPaused reports the run was paused by the runtime.
	EventWorkflowPaused EventType = "workflow_paused"

	// EventWorkflowResumed reports a paused run is running again.
	EventWorkflowResumed EventType = "workflow_resumed"

	// EventWorkflowCompleted ends the run successfully.
	EventWorkflowCompleted EventType = "workflow_completed"

	// EventWorkflowFailed ends the run with a failure.
	EventWorkflowFailed EventType = "workflow_failed"

	// EventContextUpdated replaces the run's shared context.
	EventContextUpdated EventType = "context_updated"

	// EventLog appends one line to the run's log ring.
	EventLog EventType = "log"
)

// IsValid reports whether t is a known stream event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventNodeStarted, EventNodeCompleted, EventNodeFailed,
		EventWorkflowPaused, EventWorkflowResumed, EventWorkflowCompleted,
		EventWorkflowFailed, EventContextUpdated, EventLog:
		return true
	default:
		return false
	}
}

// Event is one frame of the execution event stream. Field names follow
// the service's wire protocol, which uses camelCase JSON keys.
type Event struct {
	// Type selects which of the optional fields are meaningful.
	Type EventType `json:"type"`

	// ExecutionID identifies the run this event belongs to.
	ExecutionID string `json:"executionId,omitempty"`

	// NodeID is set on node-scoped events.
	NodeID string `json:"nodeId,omitempty"`

	// Status optionally carries the runtime's view of the run status.
	Status string `json:"status,omitempty"`

	// CurrentNodeID optionally names the node the runtime considers current.
	CurrentNodeID string `json:"currentNodeId,omitempty"`

	// Context carries a full replacement context on context_updated.
	Context map[string]any `json:"context,omitempty"`

	// NodeState, when present, overrides all local per-node statuses.
	NodeState map[string]NodeStatus `json:"nodeState,omitempty"`

	// Log is the message body of log and failure events.
	Log string `json:"log,omitempty"`

	// Ts is the server-side event timestamp.
	Ts time.Time `json:"ts,omitempty"`
}
