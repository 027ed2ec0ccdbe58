package resilience

import (
	"errors"
	"strings"
)

// RateLimitError marks a provider response that is safe to retry after
// backing off. Any other provider failure is terminal for the unit of
// work that triggered it.
type RateLimitError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps an error as rate-limited with an optional HTTP
// status code.
func NewRateLimitError(err error, statusCode int) *RateLimitError {
	return &RateLimitError{Err: err, StatusCode: statusCode}
}

// IsRateLimit returns true if the error (or any error in its chain) is a
// RateLimitError, or if the provider's message text indicates throttling.
// The message check exists because the lookup provider reports rate limits
// inside a 200-status JSON error field.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"rate limit",
		"rate-limit",
		"too many requests",
		"quota exceeded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
