// Package rttask implements spec §4.C: a cancellable task wrapper built
// entirely atop internal/rtpool. It gives each task an external kill
// handle, an optional initializer/finalizer around the user's own, and
// isolates the user's context from scheduler details — composition over
// the pool's neutral TaskSpec, never an "up-cast" (spec §9).
package rttask

import (
	"sync/atomic"
	"time"

	"github.com/dacav/soto/internal/rtlog"
	"github.com/dacav/soto/internal/rtpool"
	"github.com/google/uuid"
)

// Spec is the user-facing task description, mirroring spec §3's
// TaskSpec but routed through the wrapper instead of the pool directly.
type Spec struct {
	Period       time.Duration
	StartupDelay time.Duration
	Init         func(ctx any) bool
	Work         func(ctx any) rtpool.WorkResult
	Finalize     func(ctx any)
	Context      any
}

// Handle is the external, opaque handle returned by Subscribe. Its
// lifetime is bounded by the owning pool (spec §5).
type Handle struct {
	id            string
	active        atomic.Bool
	killRequested atomic.Bool
	threadID      atomic.Int64
	userCtx       any
	logger        *rtlog.Logger
}

// ID returns the handle's unique identifier, used for log correlation.
func (h *Handle) ID() string { return h.id }

// ThreadID returns the OS thread id captured when the task started, or 0
// if unknown on this platform or before the task has started.
func (h *Handle) ThreadID() int { return int(h.threadID.Load()) }

// IsActive reports whether the task is currently believed to be running.
func (h *Handle) IsActive() bool { return h.active.Load() }

// Context returns the user's opaque context value (spec §4.C get_context).
func (h *Handle) Context() any { return h.userCtx }

// wrapperContext is the context object actually stored on the underlying
// rtpool.TaskSpec; it carries both the handle and the user's spec so the
// wrapper's Init/Work/Finalize can reach both without leaking scheduler
// details back to the caller.
type wrapperContext struct {
	handle *Handle
	user   Spec
}

// Subscribe installs spec as a cancellable task on pool and returns an
// external handle plus a reference to its RtStats.
func Subscribe(pool *rtpool.Pool, spec Spec, logger *rtlog.Logger) (*Handle, *rtpool.RtStats, error) {
	if logger == nil {
		logger = rtlog.Default()
	}

	handle := &Handle{
		id:      uuid.New().String(),
		userCtx: spec.Context,
		logger:  logger,
	}
	wrapped := &wrapperContext{handle: handle, user: spec}

	stats, err := pool.Add(rtpool.TaskSpec{
		Period:       spec.Period,
		StartupDelay: spec.StartupDelay,
		Context:      wrapped,
		Init:         wrapperInit,
		Work:         wrapperWork,
		Finalize:     wrapperFinalize,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(handle.id, "task subscribed", nil)
	return handle, stats, nil
}

// SendKill atomically flips the cancellation token observed at the next
// test point. Idempotent: the second call on the same handle returns
// ErrAlreadyKilled (spec §8).
func SendKill(h *Handle) error {
	if !h.active.Load() {
		return ErrNotActive
	}
	if !h.killRequested.CompareAndSwap(false, true) {
		return ErrAlreadyKilled
	}
	h.logger.Info(h.id, "kill requested", nil)
	return nil
}

// GetContext returns the user context carried by handle.
func GetContext(h *Handle) any { return h.userCtx }

func wrapperInit(ctx any) bool {
	wc := ctx.(*wrapperContext)
	wc.handle.active.Store(true)
	wc.handle.threadID.Store(int64(currentThreadID()))

	if wc.user.Init == nil {
		return true
	}
	ok := wc.user.Init(wc.user.Context)
	if !ok {
		wc.handle.logger.Error(wc.handle.id, "user init failed", nil)
	}
	return ok
}

func wrapperWork(ctx any) rtpool.WorkResult {
	wc := ctx.(*wrapperContext)

	result := wc.user.Work(wc.user.Context)
	if result == rtpool.Stop {
		return rtpool.Stop
	}

	// Cancellation test point (spec §4.C): checked exactly once per
	// iteration, after the user's work body.
	if wc.handle.killRequested.Load() {
		return rtpool.Stop
	}
	return rtpool.Continue
}

func wrapperFinalize(ctx any) {
	wc := ctx.(*wrapperContext)
	if wc.user.Finalize != nil {
		wc.user.Finalize(wc.user.Context)
	}
	wc.handle.active.Store(false)
	wc.handle.logger.Info(wc.handle.id, "task finalized", nil)
}
