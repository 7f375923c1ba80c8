package layout

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/loomworks/loom/internal/graph"
	"github.com/loomworks/loom/internal/types"
)

// Scheduler runs layout off the caller's goroutine so large graphs never
// block interactive input. Submissions coalesce: while a computation is
// in flight, only the newest pending request is kept, and an unread
// result is replaced by a newer one. The computation itself is the pure
// Compute function, so offloading never changes output.
type Scheduler struct {
	opts   Options
	logger *slog.Logger

	in   chan layoutJob
	out  chan Result
	done chan struct{}

	closeOnce sync.Once
}

type layoutJob struct {
	workflow  *graph.Workflow
	direction Direction
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithOptions sets the layout options used for every computation.
func WithOptions(opts Options) SchedulerOption {
	return func(s *Scheduler) {
		s.opts = opts
	}
}

// WithLogger sets the logger for the scheduler.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler and starts its worker goroutine.
// Callers must Close it when done.
func NewScheduler(options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		opts:   DefaultOptions(),
		logger: slog.Default(),
		in:     make(chan layoutJob, 1),
		out:    make(chan Result, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}

	go s.run()
	return s
}

// Submit queues a layout computation for the given snapshot. The snapshot
// is treated as immutable; callers working through the graph mutators
// never hand the scheduler a value that later changes under it.
//
// Validation errors (nil workflow, unknown direction) are returned
// synchronously; a successful Submit always leads to at most one result,
// possibly superseded by a newer submission.
func (s *Scheduler) Submit(w *graph.Workflow, dir Direction) error {
	if w == nil {
		return types.NewError(types.LAYOUT_NIL_WORKFLOW, "workflow is nil")
	}
	if !dir.IsValid() {
		return types.NewError(types.LAYOUT_BAD_DIRECTION, fmt.Sprintf("unknown direction %q", dir))
	}

	job := layoutJob{workflow: w, direction: dir}
	for {
		select {
		case s.in <- job:
			return nil
		default:
			// Discard the stale pending job and try again.
			select {
			case <-s.in:
			default:
			}
		}
	}
}

// Results delivers computed layouts. Only the latest unread result is
// retained.
func (s *Scheduler) Results() <-chan Result {
	return s.out
}

// Close stops the worker goroutine. Pending submissions are dropped.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case job := <-s.in:
			res, err := Compute(job.workflow, job.direction, s.opts)
			if err != nil {
				// Submit validated the inputs already; reaching this
				// indicates a programming error worth surfacing.
				s.logger.Warn("layout computation rejected",
					"direction", job.direction,
					"error", err,
				)
				continue
			}

			for {
				select {
				case <-s.done:
					return
				case s.out <- res:
				default:
					// Replace an unread stale result with this one.
					select {
					case <-s.out:
					default:
					}
					continue
				}
				break
			}
		}
	}
}
