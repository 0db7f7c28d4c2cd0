//go:build linux

package rttask

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread id of the calling OS thread.
// Only meaningful right after runtime.LockOSThread, which rtpool already
// calls before running a task's Init.
func currentThreadID() int {
	return unix.Gettid()
}
