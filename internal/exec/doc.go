// Package exec tracks workflow executions running on a remote runtime
// service.
//
// The package is split along the transport boundary. Client issues
// lifecycle commands (start, pause, resume, cancel) over HTTP. Dialer
// and Stream deliver the per-execution event feed, with WSDialer as the
// websocket implementation. Tracker ties the two together: it holds one
// live subscription, folds events into a State through the pure reducer
// Apply, and fans snapshots out to observers.
//
// State is an event-sourced projection. The runtime service owns the
// truth; the tracker only mirrors what the stream reports, which keeps
// it tolerant of duplicate and reordered events. Commands update the
// local status optimistically so interfaces respond immediately, and
// every stream event reconciles that guess against the service's view.
package exec
