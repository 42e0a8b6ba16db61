package subscribe

import "math/rand"

// BackoffConfig tunes the reconnect backoff schedule. Zero values fall back
// to the documented defaults.
type BackoffConfig struct {
	SlotSize   int // default 1
	MaxRetries int // default 5
}

func (c BackoffConfig) resolved() (slotSize, maxRetries int) {
	slotSize = c.SlotSize
	if slotSize <= 0 {
		slotSize = 1
	}
	maxRetries = c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return slotSize, maxRetries
}

// ComputeBackoff returns the delay in milliseconds for the retries-th
// consecutive failure (retries >= 1). For retries below 2 it returns 0, so
// the first failure reconnects without delay; the formula applies from
// retries == 2 on.
func ComputeBackoff(cfg BackoffConfig, retries int, rnd *rand.Rand) int64 {
	slotSize, maxRetries := cfg.resolved()
	if retries < 2 {
		return 0
	}
	shift := retries - 2
	if maxShift := maxRetries - 2; shift > maxShift {
		shift = maxShift
	}
	jitter := 1 + rnd.Intn(slotSize)
	return int64(2<<uint(shift)) * int64(jitter) * 1000
}
