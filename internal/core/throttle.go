package core

import "time"

// Throttle limits how often a periodic action fires, e.g. pushing cycle
// reports to live viewers while the simulation runs flat out.
type Throttle struct {
	every time.Duration
	last  time.Time
	now   func() time.Time
}

// NewThrottle allows at most perSecond events per second. Non-positive rates
// disable throttling.
func NewThrottle(perSecond int) *Throttle {
	t := &Throttle{now: time.Now}
	if perSecond > 0 {
		t.every = time.Second / time.Duration(perSecond)
	}
	return t
}

// Allow reports whether an event may fire now and records it if so.
func (t *Throttle) Allow() bool {
	if t.every == 0 {
		return true
	}
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.every {
		return false
	}
	t.last = now
	return true
}
