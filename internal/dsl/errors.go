package dsl

import "fmt"

// ParseError represents a flow-module parsing error with source location
// information. Parsing is all-or-nothing: when a ParseError is returned
// no partial graph accompanies it.
type ParseError struct {
	// Message is the human-readable error message
	Message string
	// Line is the line number where the error occurred (1-indexed)
	Line int
	// Column is the column number where the error occurred (1-indexed)
	Column int
	// NodeID is the ID of the node being parsed when the error occurred (if applicable)
	NodeID string
	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("parse error at line %d:%d (node %s): %s", e.Line, e.Column, e.NodeID, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *ParseError) Unwrap() error {
	return e.Err
}

func errorAt(line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}
}

func nodeErrorAt(nodeID string, line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
		NodeID:  nodeID,
	}
}
