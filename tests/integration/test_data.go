package integration

import (
	"fmt"
	"sync/atomic"
	"time"
)

var ipCounter atomic.Int32

// TestIdentity generates a unique identity using a timestamp
func TestIdentity(suffix string) string {
	return fmt.Sprintf("Test-%d-%s@Example.com", time.Now().UnixNano(), suffix)
}

// TestIP returns a distinct documentation-range address per call
func TestIP() string {
	n := ipCounter.Add(1)
	return fmt.Sprintf("198.51.100.%d", n%250+1)
}

// Minutes returns base shifted by each offset in minutes
func Minutes(base time.Time, offsets ...int) []time.Time {
	out := make([]time.Time, 0, len(offsets))
	for _, m := range offsets {
		out = append(out, base.Add(time.Duration(m)*time.Minute))
	}
	return out
}
