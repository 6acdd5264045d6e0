// Retry with exponential backoff for transient provider failures.

package llm

import (
	"context"
	"math"
	"net/http"
	"time"
)

// RetryPolicy controls Retry.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy retries three times, waiting 1s, 1.5s, 2.25s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   3,
	InitialDelay: time.Second,
	Multiplier:   1.5,
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	m := p.Multiplier
	if m <= 0 {
		m = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(m, float64(attempt)))
}

// IsPermanent reports errors that retrying cannot fix.
func IsPermanent(err error) bool {
	if IsAborted(err) {
		return true
	}
	switch KindOf(err) {
	case KindValidation, KindAuth:
		return true
	}
	switch StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Retry runs fn until it succeeds, fails permanently, exhausts the policy
// or ctx ends.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.MaxRetries || IsPermanent(err) {
			return zero, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
