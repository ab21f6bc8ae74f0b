package backend

import (
	"context"
	"time"
)

// Retrying wraps a Generator with bounded retries for transient failures.
// The backoff doubles per attempt; non-transient errors surface immediately.
type Retrying struct {
	inner          Generator
	attempts       int
	baseDelay      time.Duration
	attemptTimeout time.Duration
}

func NewRetrying(inner Generator, attempts int, baseDelay, attemptTimeout time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		inner:          inner,
		attempts:       attempts,
		baseDelay:      baseDelay,
		attemptTimeout: attemptTimeout,
	}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	delay := r.baseDelay
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		}
		text, err := r.inner.Complete(attemptCtx, req)
		cancel()
		if err == nil {
			return text, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err

		if attempt < r.attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return "", &UnavailableError{Attempts: r.attempts, Err: lastErr}
}
