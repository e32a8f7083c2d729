package retry

import (
	"context"
	"time"
)

// Policy controls how many times a call is retried and how long to wait
// between attempts. The delay doubles after every failed attempt.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// Retryable reports whether err is worth another attempt. nil retries
	// every error.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the policy is exhausted, the error is not
// retryable or ctx is done.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
