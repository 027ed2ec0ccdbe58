package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior for rate-limited provider calls. It is a
// plain value carried on each validation request so tests can substitute a
// no-delay policy.
type Policy struct {
	// MaxAttempts is the total number of attempts (including the first
	// try). A value of 1 means no retries. Default: 4.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the backoff before the first retry; it doubles after
	// each rate-limited attempt. Default: 2s.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`

	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64 `yaml:"multiplier" mapstructure:"multiplier"`

	// ShouldRetry optionally overrides the default rate-limit check.
	ShouldRetry func(err error) bool `yaml:"-" mapstructure:"-"`

	// OnRetry is called before each backoff sleep with the attempt number
	// and the triggering error.
	OnRetry func(attempt int, delay time.Duration, err error) `yaml:"-" mapstructure:"-"`
}

// DefaultPolicy returns the production retry policy: 2s/4s/8s backoff
// across four total attempts, retrying only rate-limit responses.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		Multiplier:  2.0,
	}
}

// NoDelayPolicy returns a policy with the same attempt budget but zero
// backoff, for tests.
func NoDelayPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   0,
		Multiplier:  2.0,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	return p
}

// delay returns the backoff before retry number attempt (0-based).
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// DoVal executes fn, retrying with exponential backoff while the error is
// a rate limit. Any other error returns immediately: non-rate-limit
// provider failures are terminal for the unit of work. Context
// cancellation stops retries.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRateLimit
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= p.MaxAttempts-1 {
			break
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each backoff.
func RetryLogger(service, operation string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		zap.L().Warn("rate limited, backing off",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}
