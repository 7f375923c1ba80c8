package graph

import "fmt"

// Source handle names for nodes with multiple typed outputs. The default
// handle is the empty string (a plain "next" transition).
const (
	HandleDefault = ""
	HandleError   = "error"
	HandleTrue    = "true"
	HandleFalse   = "false"
)

// EdgeRecord represents a directed edge between two nodes.
type EdgeRecord struct {
	// ID is deterministic, derived from the endpoints and handle.
	ID string `json:"id"`

	// Source is the ID of the node where this edge originates.
	Source string `json:"source"`

	// Target is the ID of the node where this edge terminates.
	Target string `json:"target"`

	// SourceHandle names the typed output port on the source node.
	// Empty for the default "next" port.
	SourceHandle string `json:"source_handle,omitempty"`
}

// EdgeID derives the deterministic edge identifier for a source, handle,
// and target: "a->b" for the default handle, "a#error->b" otherwise.
func EdgeID(source, handle, target string) string {
	if handle == HandleDefault {
		return fmt.Sprintf("%s->%s", source, target)
	}
	return fmt.Sprintf("%s#%s->%s", source, handle, target)
}

// NewEdge constructs an EdgeRecord with its derived ID.
func NewEdge(source, handle, target string) EdgeRecord {
	return EdgeRecord{
		ID:           EdgeID(source, handle, target),
		Source:       source,
		Target:       target,
		SourceHandle: handle,
	}
}
