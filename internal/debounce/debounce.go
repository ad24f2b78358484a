// Package debounce delays an action until its input has been quiet for a
// fixed window.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used by list filters.
const DefaultWindow = 300 * time.Millisecond

// Timer is a pending call scheduled by a Clock.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Clock schedules delayed calls. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last function passed to Trigger, once the window
// has elapsed with no further Trigger calls.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	timer   Timer
	version uint64
}

// New creates a Debouncer. A nil clock means RealClock; a non-positive
// window means DefaultWindow.
func New(clock Clock, window time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{clock: clock, window: window}
}

// Trigger cancels any pending call and schedules f.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.version++
	version := d.version
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		// A timer that lost the race with Stop must not fire stale work.
		if version != d.version {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Stop cancels the pending call, if any. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.version++
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
