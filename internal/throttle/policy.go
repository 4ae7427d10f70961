package throttle

import "time"

// SlidingWindow limits a key to MaxCount qualifying events per trailing
// Window, blocking for BlockDuration measured from the oldest counted event.
type SlidingWindow struct {
	Window        time.Duration
	MaxCount      int
	BlockDuration time.Duration
}

// WindowStart returns the inclusive left edge of the window ending at now
func (p SlidingWindow) WindowStart(now time.Time) time.Time {
	return now.Add(-p.Window)
}

// Evaluate runs Decide with the policy's parameters
func Evaluate[R Record](p SlidingWindow, records []R, now time.Time) Decision {
	return Decide(records, p.WindowStart(now), p.MaxCount, p.BlockDuration, now)
}

// Cooldown allows at most one trigger per Period, measured from the last
// trigger. Unlike SlidingWindow it tracks a single timestamp, not a history.
type Cooldown struct {
	Period time.Duration
}

// Decide reports whether a trigger may fire at now given the last trigger
func (c Cooldown) Decide(lastTriggered *time.Time, now time.Time) Decision {
	if lastTriggered == nil || c.Period <= 0 {
		return Decision{Allowed: true}
	}
	until, remaining, held := holdUntil(*lastTriggered, c.Period, now)
	if !held {
		return Decision{Allowed: true}
	}
	return Decision{Count: 1, BlockUntil: until, RetryAfter: remaining}
}
