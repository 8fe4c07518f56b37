package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

type TimerState string

const (
	TimerIdle      TimerState = "idle"
	TimerRunning   TimerState = "running"
	TimerPaused    TimerState = "paused"
	TimerCompleted TimerState = "completed"
	TimerSkipped   TimerState = "skipped"
	TimerCancelled TimerState = "cancelled"
)

// TimerSnapshot is a point-in-time view of a RestTimer.
type TimerSnapshot struct {
	State            TimerState `json:"state"`
	TotalSeconds     int        `json:"total_seconds"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Paused           bool       `json:"paused"`
}

// Ticker abstracts *time.Ticker so tests can deliver ticks by hand.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// TickerFactory creates the per-run tick source. A nil factory means ticks
// only arrive through RestTimer.Tick.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) Chan() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()                  { s.t.Stop() }

// NewStdTicker is the production TickerFactory.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// RestTimer counts down a rest period. Remaining time is always derived from
// the clock (anchor + elapsed), so a late, dropped or duplicated tick cannot
// make it drift. Each run carries a generation number; ticks belonging to an
// older run are discarded.
type RestTimer struct {
	mu         sync.Mutex
	clock      domain.Clock
	newTicker  TickerFactory
	onComplete func()

	state           TimerState
	total           int
	anchor          time.Time
	anchorRemaining time.Duration
	gen             uint64
	stop            chan struct{}
}

// NewRestTimer creates an idle timer. onComplete fires once per run that
// counts down to zero and must not call back into the timer's owner while
// that owner holds its own lock.
func NewRestTimer(clock domain.Clock, newTicker TickerFactory, onComplete func()) *RestTimer {
	return &RestTimer{
		clock:      clock,
		newTicker:  newTicker,
		onComplete: onComplete,
		state:      TimerIdle,
	}
}

// Start begins a new run, replacing any run in progress without firing it.
func (r *RestTimer) Start(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("rest duration must not be negative, got %d: %w", seconds, domain.ErrInvalidInput)
	}

	r.mu.Lock()
	r.endRun()
	r.total = seconds
	r.anchor = r.clock.Now()
	r.anchorRemaining = time.Duration(seconds) * time.Second
	r.state = TimerRunning

	fire := r.completeIfDue()
	if !fire {
		r.startTicking()
	}
	r.mu.Unlock()

	if fire {
		r.fire()
	}
	return nil
}

// Pause freezes the remaining time. No-op unless running.
func (r *RestTimer) Pause() {
	r.mu.Lock()
	if r.state != TimerRunning {
		r.mu.Unlock()
		return
	}
	r.rebase()
	if fire := r.completeIfDue(); fire {
		r.mu.Unlock()
		r.fire()
		return
	}
	r.endRun()
	r.state = TimerPaused
	r.mu.Unlock()
}

// Resume continues a paused run from where it stopped.
func (r *RestTimer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != TimerPaused {
		return
	}
	r.anchor = r.clock.Now()
	r.state = TimerRunning
	r.startTicking()
}

// Adjust adds deltaSeconds (may be negative) to the remaining time, clamped at
// zero. Reaching zero completes the run. No-op unless running or paused.
func (r *RestTimer) Adjust(deltaSeconds int) {
	r.mu.Lock()
	if r.state != TimerRunning && r.state != TimerPaused {
		r.mu.Unlock()
		return
	}

	r.rebase()
	remaining := r.anchorRemaining + time.Duration(deltaSeconds)*time.Second
	if remaining < 0 {
		remaining = 0
	}
	r.anchorRemaining = remaining
	if secs := ceilSeconds(remaining); secs > r.total {
		r.total = secs
	}

	var fire bool
	if remaining == 0 {
		r.endRun()
		r.state = TimerCompleted
		fire = true
	}
	r.mu.Unlock()
	if fire {
		r.fire()
	}
}

// Skip ends the run early without firing completion.
func (r *RestTimer) Skip() { r.terminate(TimerSkipped) }

// Cancel stops the run without firing completion, e.g. when the session ends.
func (r *RestTimer) Cancel() { r.terminate(TimerCancelled) }

// Tick reconciles the current run with the clock. Safe to call at any time.
func (r *RestTimer) Tick() {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()
	r.tick(gen)
}

// Snapshot reconciles and reports the current state.
func (r *RestTimer) Snapshot() TimerSnapshot {
	r.mu.Lock()
	var fire bool
	if r.state == TimerRunning {
		fire = r.completeIfDue()
	}
	snap := TimerSnapshot{
		State:            r.state,
		TotalSeconds:     r.total,
		RemainingSeconds: ceilSeconds(r.remainingLocked()),
		Paused:           r.state == TimerPaused,
	}
	r.mu.Unlock()

	if fire {
		r.fire()
	}
	return snap
}

func (r *RestTimer) terminate(state TimerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != TimerRunning && r.state != TimerPaused {
		return
	}
	r.rebase()
	r.endRun()
	r.state = state
}

// tick returns false once the run identified by gen is over.
func (r *RestTimer) tick(gen uint64) bool {
	r.mu.Lock()
	if gen != r.gen || r.state != TimerRunning {
		r.mu.Unlock()
		return false
	}
	fire := r.completeIfDue()
	r.mu.Unlock()

	if fire {
		r.fire()
		return false
	}
	return true
}

// rebase folds the time elapsed since the anchor into anchorRemaining. Caller holds mu.
func (r *RestTimer) rebase() {
	now := r.clock.Now()
	if r.state == TimerRunning {
		left := r.anchorRemaining - now.Sub(r.anchor)
		if left < 0 {
			left = 0
		}
		r.anchorRemaining = left
	}
	r.anchor = now
}

// remainingLocked is the exact remaining duration; caller holds mu.
func (r *RestTimer) remainingLocked() time.Duration {
	switch r.state {
	case TimerRunning:
		left := r.anchorRemaining - r.clock.Now().Sub(r.anchor)
		if left < 0 {
			return 0
		}
		return left
	case TimerPaused, TimerSkipped, TimerCancelled:
		return r.anchorRemaining
	}
	return 0
}

// completeIfDue moves a running timer to completed once no time is left and
// reports whether the caller must fire the callback. Caller holds mu.
func (r *RestTimer) completeIfDue() bool {
	if r.state != TimerRunning || r.remainingLocked() > 0 {
		return false
	}
	r.endRun()
	r.anchorRemaining = 0
	r.state = TimerCompleted
	return true
}

// endRun invalidates the current generation and stops its tick goroutine. Caller holds mu.
func (r *RestTimer) endRun() {
	r.gen++
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// startTicking launches the tick goroutine for the current generation. Caller holds mu.
func (r *RestTimer) startTicking() {
	if r.newTicker == nil {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	go r.run(r.gen, r.newTicker(time.Second), stop)
}

func (r *RestTimer) run(gen uint64, t Ticker, stop <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			if !r.tick(gen) {
				return
			}
		}
	}
}

func (r *RestTimer) fire() {
	if r.onComplete != nil {
		r.onComplete()
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
