package quiz

import (
	"context"
	"sync"
	"time"
)

// Ticker is the tick source behind a Timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker firing every interval.
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(interval time.Duration) Ticker {
	return realTicker{t: time.NewTicker(interval)}
}

// Timer drives a periodic callback until the callback asks to stop or Stop is called.
// No callback runs after the loop has observed cancellation.
type Timer struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartTimer launches the tick loop. onTick returns false to end the loop from inside a tick.
func StartTimer(factory TickerFactory, interval time.Duration, onTick func() bool) *Timer {
	if factory == nil {
		factory = NewRealTicker
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Timer{cancel: cancel, done: make(chan struct{})}
	ticker := factory(interval)

	go func() {
		defer close(t.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				// a tick may race with cancellation; cancellation wins
				if ctx.Err() != nil {
					return
				}
				if !onTick() {
					return
				}
			}
		}
	}()
	return t
}

// Stop cancels the loop. Safe to call more than once and from inside onTick.
func (t *Timer) Stop() {
	t.once.Do(t.cancel)
}

// Done is closed once the loop has exited.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}
