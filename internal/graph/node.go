package graph

// NodeKind identifies the behavior and configuration shape of a node.
// The set is closed: every consumer switches exhaustively over it and
// rejects anything else.
type NodeKind string

const (
	// KindAgent runs a configured agent with a role, prompt, and tool set.
	KindAgent NodeKind = "agent"

	// KindCommand runs a shell command.
	KindCommand NodeKind = "command"

	// KindSlashCommand invokes a named slash command with an argument string.
	KindSlashCommand NodeKind = "slash_command"

	// KindEval evaluates an opaque expression and branches on the result.
	KindEval NodeKind = "eval"

	// KindHTTP performs an HTTP request.
	KindHTTP NodeKind = "http"

	// KindLLM sends a single prompt to a model provider.
	KindLLM NodeKind = "llm"

	// KindDynamicAgent builds an agent spec from the shared context at run time.
	KindDynamicAgent NodeKind = "dynamic_agent"

	// KindDynamicCommand builds a command line from the shared context at run time.
	KindDynamicCommand NodeKind = "dynamic_command"

	// KindProjectUpdate posts a status update to an external project.
	KindProjectUpdate NodeKind = "project_update"

	// KindCheckout checks out a repository at a ref.
	KindCheckout NodeKind = "checkout"

	// KindEnd terminates the workflow. End nodes have no outgoing transitions.
	KindEnd NodeKind = "end"
)

// AllKinds returns every node kind in declaration order.
func AllKinds() []NodeKind {
	return []NodeKind{
		KindAgent,
		KindCommand,
		KindSlashCommand,
		KindEval,
		KindHTTP,
		KindLLM,
		KindDynamicAgent,
		KindDynamicCommand,
		KindProjectUpdate,
		KindCheckout,
		KindEnd,
	}
}

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	return string(k)
}

// IsValid reports whether k is a member of the closed kind set.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindAgent, KindCommand, KindSlashCommand, KindEval, KindHTTP,
		KindLLM, KindDynamicAgent, KindDynamicCommand, KindProjectUpdate,
		KindCheckout, KindEnd:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether nodes of this kind end the workflow.
// Terminal nodes may not have outgoing edges.
func (k NodeKind) IsTerminal() bool {
	return k == KindEnd
}

// AllowsSelfLoop reports whether the kind declares a self-referential port.
// Only eval nodes may target themselves (poll-until loops via onFalse).
func (k NodeKind) AllowsSelfLoop() bool {
	return k == KindEval
}

// Position is a node's 2D coordinate on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeRecord represents a single node in a workflow graph.
type NodeRecord struct {
	// ID is the unique identifier for this node within its workflow.
	ID string `json:"id"`

	// Kind determines the node's behavior and the concrete type of Config.
	Kind NodeKind `json:"kind"`

	// Label is an optional display name shown on the canvas.
	Label string `json:"label,omitempty"`

	// Position is assigned by the layout engine or by user drag.
	Position Position `json:"position"`

	// Width and Height are the declared node extents used by layout.
	// Zero means "use the kind default".
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Orphan marks the node as tolerant of having no incoming edge.
	Orphan bool `json:"orphan,omitempty"`

	// Config carries the kind-specific configuration.
	// Invariant: Config.Kind() == Kind.
	Config NodeConfig `json:"config"`
}

// Clone returns a deep copy of the node.
func (n *NodeRecord) Clone() *NodeRecord {
	if n == nil {
		return nil
	}
	out := *n
	if n.Config != nil {
		out.Config = n.Config.Clone()
	}
	return &out
}
