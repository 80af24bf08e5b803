package backoff

import (
	"context"
	"time"
)

type (
	// Operation is a unit of work to retry. attempt starts at 1.
	Operation func(ctx context.Context, attempt int) error

	// IsRetriableFunc reports whether err is worth another attempt.
	IsRetriableFunc func(err error) bool

	// NotifyFunc is called after a failed attempt that will be retried.
	NotifyFunc func(attempt int, err error, wait time.Duration)
)

// Options tunes Retry. The zero value retries every error silently.
type Options struct {
	IsRetriable IsRetriableFunc
	OnRetry     NotifyFunc
}

// Retry runs op until it succeeds, the policy gives up, or ctx is done.
// When the policy gives up, the error of the last attempt is returned.
// Cancellation while waiting returns ctx.Err().
func Retry(ctx context.Context, op Operation, policy RetryPolicy, opts Options) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if opts.IsRetriable != nil && !opts.IsRetriable(err) {
			return err
		}

		wait, perr := policy.ComputeNextInterval(attempt - 1)
		if perr != nil {
			return err
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, wait)
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
