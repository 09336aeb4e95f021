// Package debounce coalesces bursts of input into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers only the last value triggered within a quiet window.
type Debouncer[T any] struct {
	window time.Duration
	fn     func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

func New[T any](window time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, fn: fn}
}

// Trigger schedules fn(v) after the window, cancelling any call still pending.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		// a newer Trigger or Stop raced with this timer firing
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn(v)
	})
}

// Stop cancels any pending call and disables further triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
