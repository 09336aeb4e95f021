package quiz

import (
	"testing"
	"time"
)

func TestTimerStopsWhenCallbackDeclines(t *testing.T) {
	ticker := newManualTicker()
	calls := 0
	timer := StartTimer(ticker.factory, time.Second, func() bool {
		calls++
		return calls < 3
	})

	for i := 0; i < 3; i++ {
		if !ticker.tick() {
			t.Fatalf("tick %d not accepted", i)
		}
	}
	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatalf("timer did not exit")
	}
	if ticker.tick() {
		t.Fatalf("tick accepted after exit")
	}
	if calls != 3 {
		t.Fatalf("expected 3 callbacks, got %d", calls)
	}
}

func TestTimerStopIsIdempotent(t *testing.T) {
	ticker := newManualTicker()
	timer := StartTimer(ticker.factory, time.Second, func() bool {
		t.Errorf("callback after stop")
		return true
	})
	timer.Stop()
	timer.Stop()
	<-timer.Done()
}

func TestRealTickerFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := StartTimer(nil, 5*time.Millisecond, func() bool {
		fired <- struct{}{}
		return false
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("real ticker never fired")
	}
	<-timer.Done()
}
