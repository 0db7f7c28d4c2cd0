// Package rtpool implements spec §4.B: a periodic real-time thread pool
// that schedules a fixed set of periodic tasks under a rate-monotonic
// priority assignment, with absolute-time reactivation, per-job
// statistics, and best-effort SCHED_FIFO real-time scheduling.
//
// Adapted from the goroutine-per-slot lifecycle of Crepes'
// internal/utils.WorkerPool (fixed worker count, sync.WaitGroup join,
// sync.Once shutdown) generalized from a task-queue pool into a
// fixed-task-set periodic pool, and from internal/sched.Pool/Manager's
// two-level Configuring/Running registry shape.
package rtpool

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dacav/soto/internal/rtclock"
	"github.com/dacav/soto/internal/rtlog"
)

// WorkResult is returned by a task's Work callback.
type WorkResult int

const (
	// Continue means the task should be released again next period.
	Continue WorkResult = iota
	// Stop means normal termination — not an error (spec §7).
	Stop
)

// TaskSpec is the immutable description a caller supplies to Add. Context
// is an opaque value passed to Init/Work/Finalize, modeling spec §9's
// "polymorphism over a small capability set parameterized on a context
// type" without needing a type parameter on Pool itself.
type TaskSpec struct {
	Period       time.Duration
	StartupDelay time.Duration
	Init         func(ctx any) bool
	Work         func(ctx any) WorkResult
	Finalize     func(ctx any)
	Context      any
}

// State is the pool's lifecycle state machine (spec §3).
type State int

const (
	Configuring State = iota
	Running
	TornDown
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case TornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// task is the internal pool entry sealed at Start.
type task struct {
	spec          TaskSpec
	priority      int
	absoluteStart rtclock.Instant
	stats         *RtStats
}

// Pool owns a fixed task set, assigns rate-monotonic priorities at Start,
// and runs each task on its own goroutine with absolute-time
// reactivation.
type Pool struct {
	mu            sync.Mutex
	state         State
	floorPriority int
	tasks         []*task
	lastErr       error
	wg            sync.WaitGroup
	t0            rtclock.Instant
	logger        *rtlog.Logger
	initFailures  *rtlog.ErrorGroup
}

// New creates a pool whose lowest assigned priority is floorPriority, an
// offset added to the OS real-time minimum (spec §4.B).
func New(floorPriority int, logger *rtlog.Logger) *Pool {
	if logger == nil {
		logger = rtlog.Default()
	}
	group, _ := rtlog.NewErrorGroup(context.Background(), logger)
	return &Pool{floorPriority: floorPriority, logger: logger, initFailures: group}
}

// FloorPriority returns the pool's configured priority floor.
func (p *Pool) FloorPriority() int {
	return p.floorPriority
}

// Add appends a task to the pool, returning a read-only reference to its
// RtStats. Fails with ErrAlreadyStarted once the pool has left
// Configuring. The zero-period check is deferred to Start (spec §4.B).
func (p *Pool) Add(spec TaskSpec) (*RtStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Configuring {
		return nil, ErrAlreadyStarted
	}

	t := &task{spec: spec, stats: newRtStats()}
	p.tasks = append(p.tasks, t)
	return t.stats, nil
}

// Start sorts tasks by ascending period (rate-monotonic), assigns
// priorities floor..floor+N-1 with the shortest period receiving the
// highest priority, records T0, and launches one goroutine per task.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.tasks) == 0 {
		p.lastErr = ErrEmpty
		return ErrEmpty
	}

	for _, t := range p.tasks {
		if t.spec.Period <= 0 {
			p.lastErr = ErrNullPeriod
			return ErrNullPeriod
		}
	}

	// Stable sort preserves addition order among equal periods, so tied
	// tasks still receive distinct priorities deterministically (spec
	// §4.B "Tie-breaks").
	sort.SliceStable(p.tasks, func(i, j int) bool {
		return p.tasks[i].spec.Period < p.tasks[j].spec.Period
	})

	n := len(p.tasks)
	highest := p.floorPriority + n - 1
	if highest > maxRTPriority {
		p.lastErr = &LibraryError{Code: highest}
		return p.lastErr
	}

	for i, t := range p.tasks {
		t.priority = p.floorPriority + (n - 1 - i)
	}

	p.t0 = rtclock.Now()

	for _, t := range p.tasks {
		t.absoluteStart = p.t0.Add(t.spec.StartupDelay)
		p.wg.Add(1)
		go p.runTask(t)
	}

	p.state = Running
	return nil
}

// LastError returns and clears the pending error kind.
func (p *Pool) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.lastErr
	p.lastErr = nil
	return err
}

// InitFailures returns every per-task Init failure recorded since the
// pool started, without aborting the sibling tasks that kept running
// (spec §4.B). Safe to poll at any point in the pool's lifetime.
func (p *Pool) InitFailures() []error {
	return p.initFailures.Errors()
}

// Destroy blocks until every task thread has terminated. Callers must
// have already arranged for every task's Work to return Stop (directly,
// or via the rttask cancellation wrapper) or this call never returns
// (spec §5 "Memory lifetime invariant").
func (p *Pool) Destroy() {
	p.wg.Wait()
	p.mu.Lock()
	p.state = TornDown
	p.mu.Unlock()
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pool) runTask(t *task) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	thread := taskThreadTag(t)

	if err := setRealtimePriority(t.priority); err != nil {
		p.logger.Warn(thread, "real-time scheduling unavailable, falling back to default scheduling", map[string]any{"priority": t.priority, "error": err.Error()})
	}

	if t.spec.Init != nil {
		if ok := t.spec.Init(t.spec.Context); !ok {
			p.initFailures.Record(thread, fmt.Errorf("task init failed, aborting this task only"))
			if t.spec.Finalize != nil {
				t.spec.Finalize(t.spec.Context)
			}
			return
		}
	}

	rtclock.SleepUntil(t.absoluteStart)

	nextRelease := rtclock.Now()
	for {
		arrival := nextRelease
		nextRelease = arrival.Add(t.spec.Period)

		result := t.spec.Work(t.spec.Context)
		if result == Stop {
			if t.spec.Finalize != nil {
				t.spec.Finalize(t.spec.Context)
			}
			return
		}

		finish := rtclock.Now()
		response := finish.Sub(arrival)
		missed := finish.After(nextRelease)
		t.stats.record(response, missed)
		if missed {
			p.logger.Warn(thread, "deadline miss", map[string]any{"response": response.String()})
		}

		rtclock.SleepUntil(nextRelease)
	}
}

func taskThreadTag(t *task) string {
	return "rtpool-p" + strconv.Itoa(t.priority)
}
