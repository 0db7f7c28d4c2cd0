package rtlog

import (
	"context"
	"sync"
)

// ErrorGroup aggregates errors from concurrently running goroutines,
// adapted from Crepes' internal/utils.ErrorGroup. rtpool uses it to
// collect per-task init failures during Pool.start without aborting
// sibling tasks (spec §4.B: "a failing init aborts only that task").
type ErrorGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *Logger

	mu     sync.Mutex
	errors []error
}

// NewErrorGroup derives a cancellable context from ctx and returns a
// group bound to it.
func NewErrorGroup(ctx context.Context, logger *Logger) (*ErrorGroup, context.Context) {
	derived, cancel := context.WithCancel(ctx)
	return &ErrorGroup{ctx: derived, cancel: cancel, logger: logger}, derived
}

// Go runs f in a goroutine, recording any non-nil error without
// cancelling the group's context — callers that need fatal cancellation
// should call Cancel explicitly.
func (g *ErrorGroup) Go(thread string, f func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := f(); err != nil {
			g.mu.Lock()
			g.errors = append(g.errors, err)
			g.mu.Unlock()
			if g.logger != nil {
				g.logger.Error(thread, err.Error(), nil)
			}
		}
	}()
}

// Record appends err under the group's mutex and logs it, without
// spawning a goroutine. Used by callers that already own the goroutine a
// failure happened on (rtpool's per-task threads) and only need the
// aggregation/logging half of the group.
func (g *ErrorGroup) Record(thread string, err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	g.errors = append(g.errors, err)
	g.mu.Unlock()
	if g.logger != nil {
		g.logger.Error(thread, err.Error(), nil)
	}
}

// Cancel cancels the group's derived context.
func (g *ErrorGroup) Cancel() { g.cancel() }

// Wait blocks until every goroutine started with Go has returned.
func (g *ErrorGroup) Wait() {
	g.wg.Wait()
	g.cancel()
}

// Errors returns every error recorded so far.
func (g *ErrorGroup) Errors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]error, len(g.errors))
	copy(out, g.errors)
	return out
}
