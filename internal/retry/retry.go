// Package retry runs an operation under an explicit retry policy. The
// policy value carries the attempt budget, the error classification and the
// delay computation, so the rules for which remote failures are worth
// retrying live in one testable place instead of being threaded through the
// orchestrator's loop.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how Do treats failures.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// Classify reports whether an error is transient and worth retrying.
	// A nil Classify treats every error as retryable.
	Classify func(error) bool
	// DelayFor computes the wait before the given 1-based retry attempt.
	// A nil DelayFor retries immediately.
	DelayFor func(err error, attempt int) time.Duration
}

// ExponentialDelay returns a DelayFor that doubles the base delay per
// attempt, but defers to a delay hint carried by the error when present
// (e.g. a server-provided Retry-After).
func ExponentialDelay(base time.Duration) func(error, int) time.Duration {
	return func(err error, attempt int) time.Duration {
		type delayHinter interface {
			RetryDelayHint() time.Duration
		}

		if hinter, ok := err.(delayHinter); ok {
			if d := hinter.RetryDelayHint(); d > 0 {
				return d
			}
		}

		return base << (attempt - 1)
	}
}

// Do invokes fn until it succeeds, a fatal error occurs, the attempt budget
// is exhausted or the context is cancelled.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && p.DelayFor != nil {
			if waitErr := wait(ctx, p.DelayFor(err, attempt-1)); waitErr != nil {
				return waitErr
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		if p.Classify != nil && !p.Classify(err) {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
