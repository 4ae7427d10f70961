// Package throttle decides whether a keyed action may proceed and, when it
// may not, how long the caller has to wait. It holds no state: every decision
// is recomputed from the history handed to it, so there is no stored
// "blocked" flag that can drift from the events it summarizes.
package throttle

import (
	"time"
)

// Record is one timestamped event in a key's history
type Record interface {
	OccurredAt() time.Time
	// Qualifies reports whether the record counts toward the limit
	Qualifies() bool
}

// Decision is the outcome of a throttle evaluation
type Decision struct {
	Allowed    bool
	Count      int
	BlockUntil time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

// Decide counts qualifying records at or after windowStart. Once maxCount is
// reached the block is anchored on the oldest counted record, so later
// failures can never push blockUntil past oldest+blockDuration. This holds
// when more than maxCount records are counted too: the anchor stays the oldest
// in the window, not the maxCount-th most recent. Input order does not matter. A maxCount of zero or less disables the limit.
func Decide[R Record](records []R, windowStart time.Time, maxCount int, blockDuration time.Duration, now time.Time) Decision {
	if maxCount <= 0 {
		return Decision{Allowed: true}
	}

	var oldest time.Time
	count := 0
	for _, r := range records {
		ts := r.OccurredAt()
		if !r.Qualifies() || ts.Before(windowStart) {
			continue
		}
		if count == 0 || ts.Before(oldest) {
			oldest = ts
		}
		count++
	}

	if count < maxCount {
		return Decision{Allowed: true, Count: count}
	}

	until, remaining, held := holdUntil(oldest, blockDuration, now)
	if !held {
		return Decision{Allowed: true, Count: count}
	}
	return Decision{Count: count, BlockUntil: until, RetryAfter: remaining}
}

// holdUntil is the time arithmetic shared by every policy: an action is held
// while now < anchor+hold. The boundary itself is released.
func holdUntil(anchor time.Time, hold time.Duration, now time.Time) (time.Time, time.Duration, bool) {
	until := anchor.Add(hold)
	if !now.Before(until) {
		return until, 0, false
	}
	return until, until.Sub(now), true
}
