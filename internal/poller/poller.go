// Package poller tracks the backend's out-of-band analysis job. It owns a
// single cancelable repeating timer: each tick checks the job status, and
// the poller stops and signals completion when the job reports done, when a
// check fails (inability to observe status must not block the user), or when
// the maximum wait elapses.
package poller

import (
	"context"
	"sync"
	"time"

	"examen/internal/logging"
)

// statusTimeout bounds a single status check.
const statusTimeout = 10 * time.Second

// Clock abstracts timer scheduling so tests run without wall-clock delays.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancelable scheduled call.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// StatusFunc checks the job once and reports whether it has finished.
type StatusFunc func(ctx context.Context) (done bool, err error)

// Poller schedules repeated status checks. At most one timer is armed per
// Poller; Start cancels any previous poll.
type Poller struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	maxWait  time.Duration
	timer    Timer
	gen      int
}

// New builds a poller using the system clock.
func New(interval, maxWait time.Duration) *Poller {
	return NewWithClock(systemClock{}, interval, maxWait)
}

// NewWithClock builds a poller with an injected clock. Intended for tests.
func NewWithClock(clock Clock, interval, maxWait time.Duration) *Poller {
	return &Poller{clock: clock, interval: interval, maxWait: maxWait}
}

// Start arms the poll loop. done is invoked exactly once, from a timer
// goroutine, when the poll finishes for any reason. A previous poll, if
// still armed, is canceled first and its done callback is never invoked.
func (p *Poller) Start(status StatusFunc, done func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	deadline := p.clock.Now().Add(p.maxWait)
	logging.Get(logging.CategoryPoller).Info("poll started (interval=%s max_wait=%s)", p.interval, p.maxWait)
	p.timer = p.clock.AfterFunc(p.interval, func() {
		p.tick(gen, deadline, status, done)
	})
}

func (p *Poller) tick(gen int, deadline time.Time, status StatusFunc, done func()) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	finished, err := status(ctx)
	cancel()

	p.mu.Lock()
	if p.gen != gen {
		// Superseded by a newer poll or an explicit Stop.
		p.mu.Unlock()
		return
	}

	expired := !p.clock.Now().Before(deadline)
	if err != nil || finished || expired {
		p.timer = nil
		p.mu.Unlock()
		switch {
		case err != nil:
			logging.Get(logging.CategoryPoller).Warn("status check failed, unblocking: %v", err)
		case finished:
			logging.Get(logging.CategoryPoller).Info("job finished")
		default:
			logging.Get(logging.CategoryPoller).Warn("max wait exceeded, unblocking")
		}
		done()
		return
	}

	p.timer = p.clock.AfterFunc(p.interval, func() {
		p.tick(gen, deadline, status, done)
	})
	p.mu.Unlock()
}

// Stop cancels any armed timer. The done callback of the canceled poll is
// not invoked. Safe to call when idle; must be called on view teardown so no
// timer outlives its subscriber.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Active reports whether a timer is currently armed.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}
