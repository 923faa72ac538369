package poller_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"examen/internal/poller"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock drives the poller deterministically: Advance moves time forward
// and fires due timers synchronously on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	fn      func()
	when    time.Time
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) poller.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, fn: fn, when: c.now.Add(d)}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// armed counts timers that are scheduled but neither fired nor stopped.
func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func alwaysBusy(context.Context) (bool, error)  { return false, nil }
func alwaysDone(context.Context) (bool, error)  { return true, nil }
func alwaysFails(context.Context) (bool, error) { return false, context.DeadlineExceeded }

func TestJobCompletionStopsPoller(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 10*time.Minute)

	var done atomic.Int32
	p.Start(alwaysDone, func() { done.Add(1) })
	if !p.Active() {
		t.Fatal("poller not armed after Start")
	}

	clock.advance(5 * time.Second)
	if got := done.Load(); got != 1 {
		t.Fatalf("done called %d times, want 1", got)
	}
	if p.Active() {
		t.Error("poller still armed after completion")
	}

	clock.advance(time.Minute)
	if got := done.Load(); got != 1 {
		t.Errorf("done called again after completion: %d", got)
	}
}

func TestBusyJobKeepsTimerArmed(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 10*time.Minute)

	var checks, done atomic.Int32
	status := func(context.Context) (bool, error) {
		return checks.Add(1) >= 3, nil
	}
	p.Start(status, func() { done.Add(1) })

	clock.advance(5 * time.Second)
	clock.advance(5 * time.Second)
	if done.Load() != 0 {
		t.Fatal("done called while job still busy")
	}
	if !p.Active() {
		t.Fatal("poller disarmed while job still busy")
	}

	clock.advance(5 * time.Second)
	if done.Load() != 1 {
		t.Errorf("done called %d times, want 1", done.Load())
	}
	if checks.Load() != 3 {
		t.Errorf("status checked %d times, want 3", checks.Load())
	}
}

func TestStatusFailureUnblocksDefensively(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 10*time.Minute)

	var done atomic.Int32
	p.Start(alwaysFails, func() { done.Add(1) })

	clock.advance(5 * time.Second)
	if done.Load() != 1 {
		t.Fatalf("done called %d times after failure, want 1", done.Load())
	}
	if p.Active() {
		t.Error("poller still armed after failure")
	}
}

func TestMaxWaitUnblocks(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 12*time.Second)

	var done atomic.Int32
	p.Start(alwaysBusy, func() { done.Add(1) })

	clock.advance(5 * time.Second)
	clock.advance(5 * time.Second)
	if done.Load() != 0 {
		t.Fatal("done called before max wait elapsed")
	}
	clock.advance(5 * time.Second)
	if done.Load() != 1 {
		t.Errorf("done called %d times after max wait, want 1", done.Load())
	}
}

func TestRestartCancelsPreviousPoll(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 10*time.Minute)

	var firstDone, secondDone atomic.Int32
	p.Start(alwaysBusy, func() { firstDone.Add(1) })
	p.Start(alwaysDone, func() { secondDone.Add(1) })

	if got := clock.armed(); got != 1 {
		t.Fatalf("%d timers armed after restart, want exactly 1", got)
	}

	clock.advance(5 * time.Second)
	if firstDone.Load() != 0 {
		t.Error("superseded poll signaled completion")
	}
	if secondDone.Load() != 1 {
		t.Errorf("second poll signaled %d times, want 1", secondDone.Load())
	}
}

func TestStopCancelsWithoutSignal(t *testing.T) {
	clock := newFakeClock()
	p := poller.NewWithClock(clock, 5*time.Second, 10*time.Minute)

	var done atomic.Int32
	p.Start(alwaysDone, func() { done.Add(1) })
	p.Stop()

	if p.Active() {
		t.Fatal("poller armed after Stop")
	}
	clock.advance(time.Minute)
	if done.Load() != 0 {
		t.Error("done called after Stop")
	}
}

func TestStopWhenIdleIsSafe(t *testing.T) {
	p := poller.NewWithClock(newFakeClock(), 5*time.Second, 10*time.Minute)
	p.Stop()
	p.Stop()
}
