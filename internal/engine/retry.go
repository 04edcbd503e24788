package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// newBackoff returns the schedule for policy: base*2^n, each delay capped
// at the policy maximum, at most MaxAttempts calls in total.
func newBackoff(policy config.RetryPolicy) retry.Backoff {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := retry.NewExponential(policy.BaseDelay())
	if policy.MaxDelay() > 0 {
		b = retry.WithCappedDuration(policy.MaxDelay(), b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// delayFor is the wait before attempt n+1 (n counted from 1).
func delayFor(policy config.RetryPolicy, n int) time.Duration {
	d := policy.BaseDelay() << (n - 1)
	if limit := policy.MaxDelay(); limit > 0 && (d > limit || d <= 0) {
		d = limit
	}
	return d
}

// withRetry calls fn until it succeeds, fails with a non-transient error,
// or the policy is exhausted. It returns the number of calls made and the
// last error fn returned.
func withRetry(ctx context.Context, policy config.RetryPolicy, logger *slog.Logger, op, key string, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	var last error
	err := retry.Do(ctx, newBackoff(policy), func(ctx context.Context) error {
		attempts++
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if syncerr.IsRetryable(last) && attempts < policy.MaxAttempts {
			logger.Warn("transient failure, retrying",
				"op", op,
				"key", key,
				"attempt", attempts,
				"delay", delayFor(policy, attempts),
				"err", last)
			return retry.RetryableError(last)
		}
		return last
	})
	if err == nil {
		return attempts, nil
	}
	if last == nil || ctx.Err() != nil && syncerr.IsRetryable(last) {
		// Cancelled before the first call or while waiting for the next one.
		return attempts, &syncerr.Error{Kind: syncerr.KindCancelled, Op: op, Key: key, Err: ctx.Err()}
	}
	return attempts, last
}
