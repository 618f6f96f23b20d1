package lobby

import (
	"sync"
	"testing"
	"time"
)

// fakeClock only moves when Advance is called. Every NewTimer call is
// reported on armed so tests know the protocol has entered a phase.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	armed  chan time.Duration
}

type fakeTimer struct {
	clock *fakeClock
	c     chan time.Time
	at    time.Time
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0), armed: make(chan time.Duration, 128)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	t := &fakeTimer{clock: c, c: make(chan time.Time, 1), at: c.now.Add(d)}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.armed <- d
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	live := c.timers[:0]
	for _, t := range c.timers {
		if t.done {
			continue
		}
		if !t.at.After(c.now) {
			t.done = true
			t.c <- c.now
			continue
		}
		live = append(live, t)
	}
	c.timers = live
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasLive := !t.done
	t.done = true
	return wasLive
}

// expectTimer waits for the protocol to arm its next timer.
func expectTimer(t *testing.T, c *fakeClock, want time.Duration) {
	t.Helper()
	select {
	case got := <-c.armed:
		if got != want {
			t.Fatalf("armed timer for %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a %v timer", want)
	}
}

func expectNoTimer(t *testing.T, c *fakeClock, within time.Duration) {
	t.Helper()
	select {
	case got := <-c.armed:
		t.Fatalf("unexpected %v timer armed", got)
	case <-time.After(within):
	}
}
