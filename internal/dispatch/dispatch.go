// Package dispatch implements spec §4.E: a one-to-many broadcast
// dispatcher that fans a single producer queue out to N dynamically
// created consumer queues on a dedicated goroutine.
//
// Generalized from the teacher's long-running-goroutine worker model
// (internal/scraper.Worker: "for task := range w.tasks") — the spec
// picks this long-running-thread variant over a callback-per-tick one
// (§9 Open Questions) because it matches the close-on-end-of-stream
// contract consumers expect.
package dispatch

import (
	"sync"

	"github.com/dacav/soto/internal/queue"
)

// Dispatcher fans items out from a single input queue to an ordered set
// of output queues.
type Dispatcher[T any] struct {
	input     *queue.Queue[T]
	duplicate func(T) T

	mu      sync.Mutex
	outputs []*queue.Queue[T]
	active  bool

	startOnce sync.Once
	done      chan struct{}
}

// New creates a dispatcher reading from input. A nil duplicator means
// identity: every output but the last receives the same item reference
// as the last output, and the dispatcher never copies it on consumers'
// behalf — callers in identity mode must treat delivered items as
// read-only (spec §9).
func New[T any](input *queue.Queue[T], duplicator func(T) T) *Dispatcher[T] {
	return &Dispatcher[T]{
		input:     input,
		duplicate: duplicator,
		active:    true,
		done:      make(chan struct{}),
	}
}

// NewOutput adds a new output queue of the given capacity, refusing once
// the dispatcher has stopped (input closed and drained). The new queue
// only receives items arriving after its addition.
func (d *Dispatcher[T]) NewOutput(capacity int) (*queue.Queue[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil, ErrStopped
	}
	out := queue.New[T](capacity)
	d.outputs = append(d.outputs, out)
	return out, nil
}

// OutputCount returns the number of output queues currently registered.
func (d *Dispatcher[T]) OutputCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outputs)
}

// Start launches the dispatcher's goroutine. Safe to call more than
// once; only the first call has effect.
func (d *Dispatcher[T]) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Done returns a channel closed once the dispatcher has stopped.
func (d *Dispatcher[T]) Done() <-chan struct{} { return d.done }

func (d *Dispatcher[T]) run() {
	defer close(d.done)

	for {
		item, ok := d.input.Extract()
		if !ok {
			d.mu.Lock()
			d.active = false
			outputs := d.outputs
			d.mu.Unlock()

			for _, o := range outputs {
				o.Close()
			}
			return
		}

		d.mu.Lock()
		n := len(d.outputs)
		for i, o := range d.outputs {
			var v T
			if i == n-1 {
				// The original item transfers ownership to the last
				// output, avoiding one extra duplication (spec §4.E).
				v = item
			} else if d.duplicate != nil {
				v = d.duplicate(item)
			} else {
				v = item
			}
			if err := o.Insert(v); err != nil {
				// A closed output here is a program bug: outputs are
				// only ever closed by this same goroutine, on its own
				// exit path, never concurrently.
				panic("dispatch: output refused insert: " + err.Error())
			}
		}
		d.mu.Unlock()
	}
}
