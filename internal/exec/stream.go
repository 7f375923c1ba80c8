package exec

import "context"

// Stream is a live feed of execution events. The events channel closes
// when the stream ends for any reason; Err then reports why, or nil for
// a clean shutdown.
type Stream interface {
	// Events returns the channel events arrive on.
	Events() <-chan Event

	// Err returns the terminal stream error, if any. Valid after the
	// events channel has closed.
	Err() error

	// Close tears the stream down. Safe to call more than once.
	Close() error
}

// Dialer opens an event stream for one execution.
type Dialer interface {
	Dial(ctx context.Context, executionID string) (Stream, error)
}
