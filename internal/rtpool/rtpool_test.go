package rtpool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAddAfterStartFails(t *testing.T) {
	p := New(0, nil)
	if _, err := p.Add(TaskSpec{Period: 10 * time.Millisecond, Work: func(any) WorkResult { return Stop }}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Destroy()

	if _, err := p.Add(TaskSpec{Period: time.Millisecond, Work: func(any) WorkResult { return Stop }}); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartOnEmptyPoolFailsWithEmpty(t *testing.T) {
	p := New(0, nil)
	if err := p.Start(); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestStartWithZeroPeriodFailsWithNullPeriod(t *testing.T) {
	p := New(0, nil)
	if _, err := p.Add(TaskSpec{Period: 0, Work: func(any) WorkResult { return Stop }}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Start(); err != ErrNullPeriod {
		t.Fatalf("expected ErrNullPeriod, got %v", err)
	}
}

func TestRateMonotonicPriorityAssignment(t *testing.T) {
	p := New(0, nil)

	// Added out of period order on purpose; Start must sort.
	statsT3, _ := p.Add(TaskSpec{Period: 50 * time.Millisecond, Work: func(any) WorkResult { return Stop }})
	statsT1, _ := p.Add(TaskSpec{Period: 10 * time.Millisecond, Work: func(any) WorkResult { return Stop }})
	statsT2, _ := p.Add(TaskSpec{Period: 30 * time.Millisecond, Work: func(any) WorkResult { return Stop }})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Destroy()

	// p.tasks is sorted ascending by period after Start: T1, T2, T3.
	if got := p.tasks[0].priority; got != 2 {
		t.Fatalf("T1 priority = %d, want 2", got)
	}
	if got := p.tasks[1].priority; got != 1 {
		t.Fatalf("T2 priority = %d, want 1", got)
	}
	if got := p.tasks[2].priority; got != 0 {
		t.Fatalf("T3 priority = %d, want 0", got)
	}

	_ = statsT1
	_ = statsT2
	_ = statsT3
}

func TestTaskRunsPeriodicallyAndAccumulatesStats(t *testing.T) {
	p := New(0, nil)

	var runs int32
	stats, _ := p.Add(TaskSpec{
		Period: 5 * time.Millisecond,
		Work: func(any) WorkResult {
			n := atomic.AddInt32(&runs, 1)
			if n >= 5 {
				return Stop
			}
			return Continue
		},
	})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Destroy()

	snap := stats.Snapshot()
	if snap.ExecutionCount != 4 {
		t.Fatalf("expected 4 recorded executions (iteration returning Stop isn't counted), got %d", snap.ExecutionCount)
	}
	if snap.ResponseTimeSum <= 0 {
		t.Fatalf("expected positive response time sum")
	}
}

func TestFailingInitAbortsOnlyThatTask(t *testing.T) {
	p := New(0, nil)

	var okRuns, failFinalized int32
	p.Add(TaskSpec{
		Period: 5 * time.Millisecond,
		Init:   func(any) bool { return false },
		Work:   func(any) WorkResult { return Stop },
		Finalize: func(any) {
			atomic.AddInt32(&failFinalized, 1)
		},
	})
	p.Add(TaskSpec{
		Period: 5 * time.Millisecond,
		Work: func(any) WorkResult {
			atomic.AddInt32(&okRuns, 1)
			return Stop
		},
	})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Destroy()

	if failFinalized != 1 {
		t.Fatalf("expected finalize called once for failed-init task, got %d", failFinalized)
	}
	if okRuns != 1 {
		t.Fatalf("expected the sibling task to still run, got %d", okRuns)
	}
	if failures := p.InitFailures(); len(failures) != 1 {
		t.Fatalf("expected one recorded init failure, got %d", len(failures))
	}
}

func TestFinalizeCalledOnStop(t *testing.T) {
	p := New(0, nil)

	finalized := make(chan struct{}, 1)
	p.Add(TaskSpec{
		Period: 5 * time.Millisecond,
		Work:   func(any) WorkResult { return Stop },
		Finalize: func(any) {
			finalized <- struct{}{}
		},
	})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Destroy()

	select {
	case <-finalized:
	default:
		t.Fatalf("expected finalize to run before Destroy returned")
	}
}

func TestLastErrorClearsAfterRead(t *testing.T) {
	p := New(0, nil)
	p.Start() // Empty pool, sets lastErr

	if err := p.LastError(); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if err := p.LastError(); err != nil {
		t.Fatalf("expected LastError to clear after being read, got %v", err)
	}
}
