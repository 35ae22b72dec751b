package jobs

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
)

// RetryPolicy implements the job runner's retry table: exponential
// backoff with initial jitter, a 10-minute cap, and a 5-attempt
// ceiling (initial delay × multiplier^attempt, capped, then jittered).
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy: max 5 attempts, 10-minute cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		MaxDelay:          10 * time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// ShouldRetry reports whether attempt (1-indexed, the attempt that just
// failed with err) should be retried under this policy.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	var lerr *domain.LadeError
	if errors.As(err, &lerr) {
		// An auth failure is retried once — the token source refreshes on
		// the next attempt — and is terminal on the second failure.
		if lerr.Kind == domain.KindCloudAuth {
			return attempt < 2
		}
		return lerr.Retryable()
	}
	// An error that isn't a LadeError is a local programming error by
	// convention: propagate, never silently swallow.
	return false
}

// Delay computes the jittered exponential backoff before the next
// attempt, capped at MaxDelay. attempt is 1-indexed (the attempt that
// just failed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	jitter := base * (0.5 + rand.Float64()*0.5)
	if jitter > float64(p.MaxDelay) {
		jitter = float64(p.MaxDelay)
	}
	return time.Duration(jitter)
}
