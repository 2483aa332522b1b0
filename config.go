package concierge

import "time"

// Config holds tunables for the workflow engine and its supporting
// services.
type Config struct {
	// ExecuteTimeout bounds every step execute call. On expiry the step
	// fails with a retryable timeout error and the instance is left at
	// the same step.
	ExecuteTimeout time.Duration

	// ActiveIndexTTL is how long a cached "active workflow per owner"
	// entry stays valid before callers fall back to the durable store.
	ActiveIndexTTL time.Duration

	// AbandonAfter is how long an active instance may sit without a
	// successful mutation before the janitor cancels it.
	AbandonAfter time.Duration

	// SweepSchedule is the cron expression for the janitor sweep.
	SweepSchedule string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ExecuteTimeout: 30 * time.Second,
		ActiveIndexTTL: 30 * time.Minute,
		AbandonAfter:   24 * time.Hour,
		SweepSchedule:  "@every 15m",
	}
}
