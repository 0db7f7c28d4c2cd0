package rttask

import "errors"

var (
	// ErrNotActive is returned by SendKill when the target task is not
	// (or is no longer) running.
	ErrNotActive = errors.New("rttask: task is not active")
	// ErrAlreadyKilled is returned by a second SendKill call on the same
	// handle, making kill idempotent per spec §4.C.
	ErrAlreadyKilled = errors.New("rttask: task already killed")
)
