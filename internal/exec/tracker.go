package exec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomworks/loom/internal/types"
)

// Commander issues lifecycle commands for the execution a tracker
// follows. *Client satisfies it.
type Commander interface {
	Pause(ctx context.Context, executionID string) error
	Resume(ctx context.Context, executionID string) error
	Cancel(ctx context.Context, executionID string) error
}

var _ Commander = (*Client)(nil)

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger for connection and command events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTracer sets the tracer used for connect and command spans.
func WithTracer(tr trace.Tracer) Option {
	return func(t *Tracker) {
		if tr != nil {
			t.tracer = tr
		}
	}
}

// WithLogCapacity bounds the log ring of tracked state.
func WithLogCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.logCap = n
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(fn func() time.Time) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.clock = fn
		}
	}
}

// Tracker follows one execution at a time. It folds stream events into
// a State via the reducer, fans snapshots out to observers, and issues
// lifecycle commands with optimistic local status updates.
//
// A tracker holds at most one live subscription. Connect tears down any
// prior stream before attaching the next one. When a stream fails the
// state freezes with Connected false; the tracker never reconnects on
// its own.
type Tracker struct {
	dialer    Dialer
	commander Commander
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     func() time.Time
	logCap    int

	// connMu serializes Connect, Cancel, and Close so stream teardown
	// and replacement cannot interleave.
	connMu sync.Mutex

	mu     sync.Mutex
	state  State
	stream Stream
	subs   []chan State
	closed bool

	wg    sync.WaitGroup
	obsWG sync.WaitGroup
}

// NewTracker returns a tracker that dials streams with dialer and sends
// commands through commander.
func NewTracker(dialer Dialer, commander Commander, opts ...Option) *Tracker {
	t := &Tracker{
		dialer:    dialer,
		commander: commander,
		logger:    slog.Default(),
		tracer:    otel.Tracer("loom/exec"),
		clock:     time.Now,
		logCap:    DefaultLogCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state = State{Status: StatusIdle, Nodes: make(map[string]NodeStatus), LogCap: t.logCap}
	return t
}

// Connect attaches the tracker to an execution's event stream. Any
// prior subscription is torn down first and the state resets to
// pending for the new execution. The stream stays open until ctx is
// cancelled, the stream ends, or the tracker is closed.
func (t *Tracker) Connect(ctx context.Context, executionID string) error {
	if executionID == "" {
		return types.NewError(types.EXEC_STREAM_FAILED, "execution id must not be empty")
	}
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return types.NewError(types.EXEC_NOT_CONNECTED, "tracker is closed")
	}

	ctx, span := t.tracer.Start(ctx, "tracker.Connect",
		trace.WithAttributes(attribute.String("execution.id", executionID)))
	defer span.End()

	t.teardown()

	stream, err := t.dialer.Dial(ctx, executionID)
	if err != nil {
		return types.WrapError(types.EXEC_STREAM_FAILED,
			fmt.Sprintf("failed to attach to execution %s", executionID), err)
	}

	t.mu.Lock()
	t.state = NewState(executionID, t.logCap)
	t.state.Connected = true
	t.stream = stream
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	t.wg.Add(1)
	go t.consume(stream)

	t.logger.InfoContext(ctx, "attached to execution stream", "execution_id", executionID)
	return nil
}

// Snapshot returns a deep copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Updates registers an observer channel. Delivery never blocks: each
// channel holds the latest snapshot and stale ones are overwritten. The
// channel is seeded with the current state and closed by Close.
func (t *Tracker) Updates() <-chan State {
	ch := make(chan State, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	ch <- t.state.Clone()
	return ch
}

// Notify invokes fn for every published snapshot until the tracker is
// closed. Slow observers see the latest state, not every intermediate.
func (t *Tracker) Notify(fn func(State)) {
	if fn == nil {
		return
	}
	ch := t.Updates()
	t.obsWG.Add(1)
	go func() {
		defer t.obsWG.Done()
		for st := range ch {
			fn(st)
		}
	}()
}

// Pause suspends the tracked execution. The local status flips to
// paused immediately and reverts if the command is rejected. Stream
// events reconcile the final status either way.
func (t *Tracker) Pause(ctx context.Context) error {
	t.mu.Lock()
	if t.stream == nil || t.state.ExecutionID == "" {
		t.mu.Unlock()
		return types.NewError(types.EXEC_NOT_CONNECTED, "no execution stream attached")
	}
	if !t.state.Status.CanPause() {
		status := t.state.Status
		t.mu.Unlock()
		return types.NewError(types.EXEC_BAD_TRANSITION,
			fmt.Sprintf("cannot pause execution in status %s", status))
	}
	id := t.state.ExecutionID
	prev := t.state.Status
	t.state.Status = StatusPaused
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	ctx, span := t.tracer.Start(ctx, "tracker.Pause",
		trace.WithAttributes(attribute.String("execution.id", id)))
	defer span.End()

	if err := t.commander.Pause(ctx, id); err != nil {
		t.revertStatus(StatusPaused, prev)
		return types.WrapError(types.EXEC_COMMAND_FAILED, "pause command rejected", err)
	}
	t.logger.InfoContext(ctx, "execution paused", "execution_id", id)
	return nil
}

// Resume continues a paused execution. Like Pause, the local status is
// updated optimistically and reverted on rejection.
func (t *Tracker) Resume(ctx context.Context) error {
	t.mu.Lock()
	if t.stream == nil || t.state.ExecutionID == "" {
		t.mu.Unlock()
		return types.NewError(types.EXEC_NOT_CONNECTED, "no execution stream attached")
	}
	if !t.state.Status.CanResume() {
		status := t.state.Status
		t.mu.Unlock()
		return types.NewError(types.EXEC_BAD_TRANSITION,
			fmt.Sprintf("cannot resume execution in status %s", status))
	}
	id := t.state.ExecutionID
	prev := t.state.Status
	t.state.Status = StatusRunning
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	ctx, span := t.tracer.Start(ctx, "tracker.Resume",
		trace.WithAttributes(attribute.String("execution.id", id)))
	defer span.End()

	if err := t.commander.Resume(ctx, id); err != nil {
		t.revertStatus(StatusRunning, prev)
		return types.WrapError(types.EXEC_COMMAND_FAILED, "resume command rejected", err)
	}
	t.logger.InfoContext(ctx, "execution resumed", "execution_id", id)
	return nil
}

// Cancel stops the tracked execution and releases the local
// subscription once the command is accepted. The frozen state keeps
// status cancelled; the runtime finishes its current node on its own
// schedule.
func (t *Tracker) Cancel(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.mu.Lock()
	if t.stream == nil || t.state.ExecutionID == "" {
		t.mu.Unlock()
		return types.NewError(types.EXEC_NOT_CONNECTED, "no execution stream attached")
	}
	if !t.state.Status.CanCancel() {
		status := t.state.Status
		t.mu.Unlock()
		return types.NewError(types.EXEC_BAD_TRANSITION,
			fmt.Sprintf("cannot cancel execution in status %s", status))
	}
	id := t.state.ExecutionID
	prev := t.state.Status
	t.state.Status = StatusCancelled
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	ctx, span := t.tracer.Start(ctx, "tracker.Cancel",
		trace.WithAttributes(attribute.String("execution.id", id)))
	defer span.End()

	if err := t.commander.Cancel(ctx, id); err != nil {
		t.revertStatus(StatusCancelled, prev)
		return types.WrapError(types.EXEC_COMMAND_FAILED, "cancel command rejected", err)
	}

	t.teardown()
	t.mu.Lock()
	t.state.Connected = false
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "execution cancelled", "execution_id", id)
	return nil
}

// Close tears down the stream and all observer channels. The tracker
// cannot be reused afterwards.
func (t *Tracker) Close() error {
	t.connMu.Lock()
	t.teardown()
	t.connMu.Unlock()

	t.mu.Lock()
	if !t.closed {
		t.closed = true
		for _, ch := range t.subs {
			close(ch)
		}
		t.subs = nil
	}
	t.mu.Unlock()

	t.obsWG.Wait()
	return nil
}

// teardown detaches the current stream, if any, and waits for its
// consumer goroutine to finish. Callers hold connMu.
func (t *Tracker) teardown() {
	t.mu.Lock()
	stream := t.stream
	t.stream = nil
	t.mu.Unlock()
	if stream != nil {
		stream.Close()
	}
	t.wg.Wait()
}

func (t *Tracker) consume(stream Stream) {
	defer t.wg.Done()
	for ev := range stream.Events() {
		t.applyEvent(ev)
	}

	t.mu.Lock()
	lost := t.stream == stream
	var execID string
	if lost {
		// The stream ended on its own. Freeze the state as-is; the
		// caller decides whether to reconnect.
		t.stream = nil
		t.state.Connected = false
		t.state.Logs = appendLog(t.state.Logs, LogEntry{
			Ts:      t.clock(),
			Message: "lost connection to execution stream",
		}, t.logCap)
		execID = t.state.ExecutionID
		t.publishLocked(t.state.Clone())
	}
	t.mu.Unlock()

	if lost {
		if err := stream.Err(); err != nil {
			t.logger.Warn("execution stream ended",
				"execution_id", execID,
				"error", err)
		} else {
			t.logger.Warn("execution stream ended", "execution_id", execID)
		}
	}
}

func (t *Tracker) applyEvent(ev Event) {
	if ev.Ts.IsZero() {
		ev.Ts = t.clock()
	}
	t.mu.Lock()
	before := t.state.Malformed
	t.state = Apply(t.state, ev)
	malformed := t.state.Malformed > before
	execID := t.state.ExecutionID
	t.publishLocked(t.state.Clone())
	t.mu.Unlock()

	if malformed {
		t.logger.Warn("ignoring malformed execution event",
			"execution_id", execID,
			"event_type", string(ev.Type))
	}
}

func (t *Tracker) revertStatus(from, to Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Only revert if no stream event reconciled the status meanwhile.
	if t.state.Status == from {
		t.state.Status = to
		t.publishLocked(t.state.Clone())
	}
}

// publishLocked hands the snapshot to every observer channel without
// blocking, overwriting any stale snapshot still buffered. Callers hold
// t.mu.
func (t *Tracker) publishLocked(st State) {
	if t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}
