package jobs

import "time"

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
)

// Backoff returns the delay before a failed job becomes eligible again:
// 30s doubled per attempt, capped at one hour.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 8 {
		return maxBackoff
	}
	delay := baseBackoff << (attempt - 1)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
