package resilience

import (
	"math"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/config"
)

// Policy bounds how long and how often an operation is attempted.
type Policy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
	// Timeout applies to each attempt separately. Zero disables it.
	Timeout time.Duration
}

// PolicyFromConfig converts a configured retry policy.
func PolicyFromConfig(c config.RetryPolicyConfig) Policy {
	return Policy{
		MaxRetries:        c.MaxRetries,
		InitialDelay:      c.InitialDelay,
		MaxDelay:          c.MaxDelay,
		BackoffMultiplier: c.BackoffMultiplier,
		Jitter:            c.Jitter,
		Timeout:           c.Timeout,
	}
}

// WithMaxRetries returns a copy capped at n retries.
func (p Policy) WithMaxRetries(n int) Policy {
	if p.MaxRetries > n {
		p.MaxRetries = n
	}
	return p
}

// Delay returns the wait before retry number attempt+1:
// min(MaxDelay, InitialDelay*BackoffMultiplier^attempt), scaled by rnd() when
// jitter is on. rnd must return values in [0, 1].
func (p Policy) Delay(attempt int, rnd func() float64) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if p.MaxDelay > 0 && (d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d)) {
		d = float64(p.MaxDelay)
	}
	if d < 0 || math.IsNaN(d) {
		d = 0
	}
	if p.Jitter && rnd != nil {
		d *= rnd()
	}
	return time.Duration(d)
}
