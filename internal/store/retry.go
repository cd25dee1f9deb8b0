package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"wattwise/internal/engineerr"
)

// maxAttempts bounds the exponential-backoff retry the component design
// calls for ("retried with exponential backoff up to N attempts").
const maxAttempts = 4

// withRetry wraps a store operation with exponential backoff and converts
// final failure into a typed engineerr.StoreError instead of a bare error,
// per the adapter's degrade-gracefully contract.
func withRetry[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		return fn(ctx)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(maxAttempts))

	if err != nil {
		var zero T
		return zero, &engineerr.StoreError{Op: op, Err: err, Retried: attempts - 1}
	}
	return result, nil
}
