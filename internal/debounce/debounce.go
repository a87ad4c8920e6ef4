// Package debounce delays rapidly changing input until it settles.
//
// A Func forwards only the trailing call of a burst: each Call cancels the
// previously scheduled one and restarts the quiet window. Earlier values are
// discarded, not queued, and at most one timer is alive per Func.
package debounce

import (
	"sync"
	"time"
)

// Func is a debounced wrapper around fn. Safe for concurrent use.
type Func[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	value   T
	seq     uint64 // bumped on every Call/Stop/Flush; a timer only fires if seq is unchanged
	stopped bool
}

// New returns a Func that calls fn with the latest value once wait has
// passed without another Call. A non-positive wait fires on the next tick.
func New[T any](wait time.Duration, fn func(T)) *Func[T] {
	if wait < 0 {
		wait = 0
	}
	return &Func[T]{wait: wait, fn: fn}
}

// Call schedules fn(v) after the quiet window, replacing any pending call.
// No-op after Stop.
func (d *Func[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.seq++
	d.value = v
	d.pending = true

	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.wait, func() { d.fire(seq) })
}

// fire runs fn if no Call, Flush or Stop happened since the timer was armed.
// A timer whose Stop lost the race still reaches here; the seq check drops it.
func (d *Func[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.seq != seq || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Flush runs a pending call immediately. Returns false if nothing was pending.
func (d *Func[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
	return true
}

// Stop cancels a pending call. Later Calls are ignored.
func (d *Func[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is waiting for its quiet window.
func (d *Func[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
