package service

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced domain.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// manualTicker delivers ticks only when the test sends them.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) Chan() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() { m.once.Do(func() { close(m.stopped) }) }

// send delivers one tick, reporting false if the consumer has gone away.
func (m *manualTicker) send(at time.Time) bool {
	select {
	case m.ch <- at:
		return true
	case <-m.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

func (m *manualTicker) isStopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// tickerRecorder is a TickerFactory that hands every created ticker to the test.
type tickerRecorder struct {
	created chan *manualTicker
}

func newTickerRecorder() *tickerRecorder {
	return &tickerRecorder{created: make(chan *manualTicker, 16)}
}

func (r *tickerRecorder) factory(time.Duration) Ticker {
	t := newManualTicker()
	r.created <- t
	return t
}

func (r *tickerRecorder) next(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-r.created:
		return tk
	case <-time.After(time.Second):
		t.Fatal("no ticker was created")
		return nil
	}
}

var monday = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) // a Monday

func intPtr(i int) *int { return &i }
