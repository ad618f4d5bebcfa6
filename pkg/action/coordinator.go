// Package action serializes the long-running maintenance operations over one
// workspace. Exactly one of scan/analyze/plan/decide/move may run at a time;
// a second start attempt fails with ErrConflict naming the running kind.
// Cancellation is cooperative: RequestCancel cancels the run's context, which
// operations observe at their per-file checkpoints.
package action

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind identifies a maintenance operation.
type Kind string

const (
	KindNone    Kind = "none"
	KindScan    Kind = "scan"
	KindAnalyze Kind = "analyze"
	KindPlan    Kind = "plan"
	KindDecide  Kind = "decide"
	KindMove    Kind = "move"
)

// Valid reports whether k names a startable operation.
func (k Kind) Valid() bool {
	switch k {
	case KindScan, KindAnalyze, KindPlan, KindDecide, KindMove:
		return true
	}
	return false
}

// ErrConflict is returned when an operation is already running.
type ErrConflict struct {
	Running Kind
}

func (e ErrConflict) Error() string {
	return "another action is running: " + string(e.Running)
}

// ErrInvalidKind is returned when starting an unknown operation kind.
type ErrInvalidKind struct {
	Kind Kind
}

func (e ErrInvalidKind) Error() string {
	return "invalid action kind: " + string(e.Kind)
}

// Status is a snapshot of the coordinator's state.
type Status struct {
	Kind            Kind
	RunID           string
	StartedAt       time.Time
	CancelRequested bool
}

// Run represents one active operation. The operation body must call Finish
// on every exit path so the coordinator always returns to idle.
type Run struct {
	coord     *Coordinator
	id        string
	kind      Kind
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// ID returns the run's unique identifier.
func (r *Run) ID() string {
	return r.id
}

// Kind returns the running operation kind.
func (r *Run) Kind() Kind {
	return r.kind
}

// Context is cancelled when cancellation is requested. Operations check it
// at each natural checkpoint (per file, per batch).
func (r *Run) Context() context.Context {
	return r.ctx
}

// Finish transitions the coordinator back to idle. It is idempotent and safe
// to defer; err is recorded only in the log.
func (r *Run) Finish(err error) {
	r.coord.finish(r, err)
}

// Coordinator enforces workspace-wide mutual exclusion of operations.
type Coordinator struct {
	mu      sync.Mutex
	current *Run
	logger  *zap.Logger
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Start transitions Idle → Running(kind). While another operation runs it
// fails with ErrConflict; callers retry later rather than queue.
func (c *Coordinator) Start(ctx context.Context, kind Kind) (*Run, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind{Kind: kind}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, ErrConflict{Running: c.current.kind}
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		coord:     c,
		id:        uuid.NewString(),
		kind:      kind,
		startedAt: time.Now().UTC(),
		ctx:       runCtx,
		cancel:    cancel,
	}
	c.current = run

	c.logger.Info("action started",
		zap.String("kind", string(kind)),
		zap.String("run_id", run.id),
	)

	return run, nil
}

// RequestCancel asks the running operation to stop at its next checkpoint.
// It returns false when no operation is running. The transition back to idle
// still happens through the operation's Finish call.
func (c *Coordinator) RequestCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return false
	}

	c.current.cancel()
	c.logger.Info("action cancellation requested",
		zap.String("kind", string(c.current.kind)),
		zap.String("run_id", c.current.id),
	)

	return true
}

// Status reports the current kind (or none), start time, and whether
// cancellation was requested. It never blocks on a running operation.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Status{Kind: KindNone}
	}

	return Status{
		Kind:            c.current.kind,
		RunID:           c.current.id,
		StartedAt:       c.current.startedAt,
		CancelRequested: c.current.ctx.Err() != nil,
	}
}

func (c *Coordinator) finish(run *Run, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale Finish from an already-replaced run is a no-op.
	if c.current != run {
		return
	}

	run.cancel()
	c.current = nil

	if err != nil {
		c.logger.Warn("action finished with error",
			zap.String("kind", string(run.kind)),
			zap.String("run_id", run.id),
			zap.Error(err),
		)
		return
	}

	c.logger.Info("action finished",
		zap.String("kind", string(run.kind)),
		zap.String("run_id", run.id),
		zap.Duration("elapsed", time.Since(run.startedAt)),
	)
}
