// Package retry polls flaky UI conditions until they hold, bounded by a
// deadline and filtered through a stability threshold.
package retry

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Threshold is a stopwatch that reports whether an interval has passed since
// the last reset. A polled condition must hold for the whole interval before
// it is accepted.
type Threshold struct {
	mu       sync.Mutex
	now      Clock
	start    time.Time
	interval time.Duration
	resets   int
}

// NewThreshold starts a stopwatch for interval using the wall clock.
func NewThreshold(interval time.Duration) *Threshold {
	return NewThresholdWithClock(interval, time.Now)
}

// NewThresholdWithClock starts a stopwatch that reads time from now.
func NewThresholdWithClock(interval time.Duration, now Clock) *Threshold {
	if now == nil {
		now = time.Now
	}
	if interval < 0 {
		interval = 0
	}
	return &Threshold{now: now, start: now(), interval: interval}
}

// Reset restarts the stopwatch and counts the flap.
func (t *Threshold) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
	t.resets++
}

// HasFinished reports whether the interval elapsed since the last reset.
func (t *Threshold) HasFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.start) >= t.interval
}

// ResetCount is the number of resets so far.
func (t *Threshold) ResetCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// Interval returns the configured stability interval.
func (t *Threshold) Interval() time.Duration {
	return t.interval
}
