// Package interaction turns pointer, keyboard and viewport events into state
// actions. Hover driven highlight and tooltip changes are debounced on
// cancellable timers; everything else is dispatched immediately.
package interaction

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle is a pending scheduled call.
type Handle interface {
	// Cancel stops the call. It reports false if the call already started
	// or was cancelled before.
	Cancel() bool
}

// Scheduler runs functions after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// ClockScheduler schedules on a clockwork clock, so tests can drive time
// with a fake clock.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewClockScheduler creates a scheduler backed by clock.
func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	return &ClockScheduler{clock: clock}
}

// Schedule runs fn on its own goroutine once delay has elapsed.
func (s *ClockScheduler) Schedule(delay time.Duration, fn func()) Handle {
	return timerHandle{s.clock.AfterFunc(delay, fn)}
}

type timerHandle struct {
	timer clockwork.Timer
}

func (h timerHandle) Cancel() bool { return h.timer.Stop() }

// debouncer tracks the pending call of one interaction channel. gen is bumped
// on every cancel so a callback that already started can tell it is stale.
// The owner serialises access.
type debouncer struct {
	channel string
	handle  Handle
	gen     uint64
}

// cancel drops the pending call and reports whether one was stopped before
// it started.
func (d *debouncer) cancel() bool {
	d.gen++
	if d.handle == nil {
		return false
	}
	stopped := d.handle.Cancel()
	d.handle = nil
	return stopped
}
