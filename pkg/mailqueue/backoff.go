package mailqueue

import "time"

// Retry delay schedules, indexed by the number of attempts already
// spent. These are explicit ascending schedules, not computed
// exponentials; moderation tooling and tests rely on the exact values.
var (
	// DefaultBackoff covers general queued mail (up to 5 attempts):
	// 1min, 5min, 15min, 1hr, 6hr.
	DefaultBackoff = []time.Duration{
		60 * time.Second,
		300 * time.Second,
		900 * time.Second,
		3600 * time.Second,
		21600 * time.Second,
	}

	// ShortBackoff covers password-reset mail (up to 3 attempts):
	// 1min, 5min, 15min.
	ShortBackoff = []time.Duration{
		60 * time.Second,
		300 * time.Second,
		900 * time.Second,
	}
)

// scheduleFor picks the delay schedule matching a row's retry budget.
func scheduleFor(maxAttempts int) []time.Duration {
	if maxAttempts <= len(ShortBackoff) {
		return ShortBackoff
	}
	return DefaultBackoff
}

// delayFor returns the wait before the next attempt, given how many
// attempts have been spent. Attempts beyond the schedule reuse the last
// entry.
func delayFor(schedule []time.Duration, attemptsSpent int) time.Duration {
	if attemptsSpent < 1 {
		attemptsSpent = 1
	}
	if attemptsSpent > len(schedule) {
		attemptsSpent = len(schedule)
	}
	return schedule[attemptsSpent-1]
}
