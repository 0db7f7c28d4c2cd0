//go:build linux

package rtpool

import "golang.org/x/sys/unix"

// minRTPriority is SCHED_FIFO's lowest priority on Linux; pool priorities
// are offsets above it.
const minRTPriority = 1

// maxRTPriority is the highest pool priority that still maps into
// SCHED_FIFO's 1..99 range once minRTPriority is added.
const maxRTPriority = 99 - minRTPriority

// setRealtimePriority pins the calling OS thread (the caller must have
// already called runtime.LockOSThread) to SCHED_FIFO at minRTPriority
// plus the given pool priority. Failure is not fatal to the task — spec
// §4.B requires "falling back to default scheduling if the build
// disables real time", so the caller only logs the error and continues.
func setRealtimePriority(priority int) error {
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: int32(minRTPriority + priority)})
}
