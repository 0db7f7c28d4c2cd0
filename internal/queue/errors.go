package queue

import "errors"

// ErrClosed is returned by Insert once the queue has been closed.
var ErrClosed = errors.New("queue: closed")
