package dispatch

import "errors"

// ErrStopped is returned by NewOutput once the dispatcher has observed
// end-of-stream on its input and stopped.
var ErrStopped = errors.New("dispatch: stopped")
