// Package retry wraps the network calls omni makes during resolution
// and installation (catalog fetches, asset downloads) in a shared
// exponential-backoff policy, so a flaky registry or CDN doesn't fail
// an up run on the first dropped connection.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Do runs op up to 3 times total. The wait before the second attempt
// is about 1s and before the third about 2s (the policy doubles the
// interval up to a 4s cap), each randomized by ±50%. op is the network call itself (an HTTP
// round trip) — failures that happen after the network call succeeds,
// such as checksum or signature mismatches, should not be passed
// through Do, since they are not transient.
//
// ctx cancellation (including a parent timeout) aborts the retry loop
// immediately.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, backoff.WithBackOff(policy()), backoff.WithMaxTries(3))
}

// Permanent marks err as non-retryable, stopping the loop immediately
// instead of waiting out the remaining attempts. Use it for errors
// that retrying cannot fix, e.g. a 404 or 401 response.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 4 * time.Second
	b.RandomizationFactor = 0.5
	return b
}
