//go:build !linux

package rtpool

import "errors"

// maxRTPriority is a conservative placeholder on platforms without
// SCHED_FIFO; priority validation in Start still uses it to bound the
// floor+N-1 assignment.
const maxRTPriority = 99

// setRealtimePriority always reports that real-time scheduling is
// unavailable on this build, matching spec §4.B's documented fallback to
// default scheduling.
func setRealtimePriority(priority int) error {
	return errors.New("rtpool: real-time scheduling unavailable on this platform")
}
