package throttle

import "fmt"

// FormatRetryAfter renders a wait for display, rounded up to whole minutes
func FormatRetryAfter(seconds int) string {
	minutes := (seconds + 59) / 60
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "try again in 1 minute"
	}
	return fmt.Sprintf("try again in %d minutes", minutes)
}
