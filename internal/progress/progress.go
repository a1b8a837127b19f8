// Package progress tracks completion of a fixed number of work units.
package progress

import (
	"fmt"
	"time"
)

// Tracker reports "n of N completed" with a linear time estimate.
type Tracker struct {
	total int
	done  int
	start time.Time
	now   func() time.Time
}

// New starts a tracker for total units.
func New(total int) *Tracker {
	return NewWithClock(total, time.Now)
}

// NewWithClock starts a tracker using the given clock.
func NewWithClock(total int, now func() time.Time) *Tracker {
	return &Tracker{total: total, start: now(), now: now}
}

// Done marks one unit completed and returns the status line.
func (t *Tracker) Done() string {
	t.done++
	return t.Status()
}

// Completed returns the number of completed units.
func (t *Tracker) Completed() int {
	return t.done
}

// Status returns the current status line, for example
// "Completed 3/10 (30.0 percent) in 42 seconds, 98 seconds remaining."
func (t *Tracker) Status() string {
	elapsed := t.now().Sub(t.start)
	percent := 0.0
	if t.total > 0 {
		percent = float64(t.done) / float64(t.total) * 100
	}

	var remaining time.Duration
	if t.done > 0 && percent < 100 {
		remaining = time.Duration(float64(elapsed) * (100 - percent) / percent)
	}
	return fmt.Sprintf("Completed %d/%d (%.1f percent) in %s, %s remaining.",
		t.done, t.total, percent, Format(elapsed), Format(remaining))
}

// Format renders a duration in whole seconds, minutes or hours, switching
// unit once the smaller one would exceed 120.
func Format(d time.Duration) string {
	s := int(d.Seconds())
	if s < 120 {
		return fmt.Sprintf("%d seconds", s)
	}
	m := s / 60
	if m < 120 {
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%d hours", m/60)
}
