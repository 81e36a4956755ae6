package github

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// calculateBackoff calculates the backoff duration with exponential backoff and jitter
func (p *RetryPolicy) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^attempt
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))

	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}

	// Jitter (random value between 0 and backoff/2) prevents the
	// thundering herd problem
	jitter := rand.Float64() * (backoff / 2)
	backoff = backoff + jitter

	return time.Duration(backoff)
}
