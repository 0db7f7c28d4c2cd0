package rtpool

import (
	"sync/atomic"
	"time"
)

// RtStats aggregates the per-job counters spec §3 mandates: response time
// sum, execution count, worst-case response, and deadline misses. Every
// field is updated only by the task's own thread; readers use Snapshot,
// which may observe the four fields mid-update (spec §5 permits this —
// "readers must not assume atomic consistency across the four fields").
// All fields are monotonically non-decreasing, satisfying the invariant
// in spec §8.
type RtStats struct {
	responseTimeSumNs   atomic.Int64
	executionCount      atomic.Uint64
	worstCaseResponseNs atomic.Int64
	deadlineMisses      atomic.Uint64
}

// RtStatsSnapshot is a plain-value copy of RtStats at one instant,
// returned by RtStats.Snapshot for reporting.
type RtStatsSnapshot struct {
	ResponseTimeSum   time.Duration
	ExecutionCount    uint64
	WorstCaseResponse time.Duration
	DeadlineMisses    uint64
}

func newRtStats() *RtStats {
	return &RtStats{}
}

// record is called once at the end of every job iteration by the task's
// own thread.
func (s *RtStats) record(response time.Duration, deadlineMissed bool) {
	s.responseTimeSumNs.Add(int64(response))
	s.executionCount.Add(1)

	respNs := int64(response)
	for {
		cur := s.worstCaseResponseNs.Load()
		if respNs <= cur {
			break
		}
		if s.worstCaseResponseNs.CompareAndSwap(cur, respNs) {
			break
		}
	}

	if deadlineMissed {
		s.deadlineMisses.Add(1)
	}
}

// Snapshot returns a read-only copy of the current counters. Safe to call
// from any goroutine; the reference's lifetime is bounded by the pool
// that produced it (spec §3).
func (s *RtStats) Snapshot() RtStatsSnapshot {
	return RtStatsSnapshot{
		ResponseTimeSum:   time.Duration(s.responseTimeSumNs.Load()),
		ExecutionCount:    s.executionCount.Load(),
		WorstCaseResponse: time.Duration(s.worstCaseResponseNs.Load()),
		DeadlineMisses:    s.deadlineMisses.Load(),
	}
}
