package exec

import "time"

// Status represents the lifecycle status of a tracked execution.
type Status string

const (
	// StatusIdle means no execution is attached yet.
	StatusIdle Status = "idle"

	// StatusPending means the stream is attached but no event has arrived.
	StatusPending Status = "pending"

	// StatusRunning means the run is actively executing nodes.
	StatusRunning Status = "running"

	// StatusPaused means the run is suspended and can be resumed.
	StatusPaused Status = "paused"

	// StatusCompleted means the run finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed means the run ended with a failure.
	StatusFailed Status = "failed"

	// StatusCancelled means the run was cancelled by request.
	StatusCancelled Status = "cancelled"
)

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the run can receive no further lifecycle
// transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanPause reports whether a pause command is valid from this status.
func (s Status) CanPause() bool {
	return s == StatusRunning
}

// CanResume reports whether a resume command is valid from this status.
func (s Status) CanResume() bool {
	return s == StatusPaused
}

// CanCancel reports whether a cancel command is valid from this status.
func (s Status) CanCancel() bool {
	return s == StatusRunning || s == StatusPaused
}

// NodeStatus represents the per-node progress of an execution.
type NodeStatus string

const (
	// NodePending means the node has not started.
	NodePending NodeStatus = "pending"

	// NodeRunning means the node is currently executing.
	NodeRunning NodeStatus = "running"

	// NodeCompleted means the node finished successfully.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed means the node ended with an error.
	NodeFailed NodeStatus = "failed"

	// NodeSkipped means the run ended before the node was reached.
	NodeSkipped NodeStatus = "skipped"
)

// DefaultLogCapacity bounds the log ring when no capacity is configured.
const DefaultLogCapacity = 500

// LogEntry is one line in the execution log ring.
type LogEntry struct {
	Ts      time.Time `json:"ts"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

// State is the local projection of one execution, folded from the event
// stream. It is a value type: Apply and Clone never mutate their input.
type State struct {
	// ExecutionID identifies the run, empty while idle.
	ExecutionID string `json:"execution_id,omitempty"`

	// Status is the run lifecycle status.
	Status Status `json:"status"`

	// CurrentNode is the node currently executing, empty between nodes.
	CurrentNode string `json:"current_node,omitempty"`

	// Nodes maps node ids to their last observed status.
	Nodes map[string]NodeStatus `json:"nodes"`

	// Context is the run's shared context as last reported.
	Context map[string]any `json:"context,omitempty"`

	// Logs is the bounded log ring, oldest first.
	Logs []LogEntry `json:"logs,omitempty"`

	// LogCap bounds Logs; zero means DefaultLogCapacity.
	LogCap int `json:"-"`

	// Malformed counts events that were ignored as undecodable.
	Malformed int `json:"malformed_events,omitempty"`

	// Connected reports whether the event stream is still attached.
	Connected bool `json:"connected"`
}

// NewState returns a pending state for a freshly attached execution.
func NewState(executionID string, logCap int) State {
	return State{
		ExecutionID: executionID,
		Status:      StatusPending,
		Nodes:       make(map[string]NodeStatus),
		LogCap:      logCap,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	if s.Nodes != nil {
		out.Nodes = make(map[string]NodeStatus, len(s.Nodes))
		for id, st := range s.Nodes {
			out.Nodes[id] = st
		}
	}
	out.Context = cloneAnyMap(s.Context)
	if s.Logs != nil {
		out.Logs = make([]LogEntry, len(s.Logs))
		copy(out.Logs, s.Logs)
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = cloneAnyMap(vv)
		case []any:
			items := make([]any, len(vv))
			copy(items, vv)
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
