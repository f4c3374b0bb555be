// Package retry wraps provider calls with the shared resilience policy:
// exponential backoff with jitter for transient failures, immediate surfacing
// of client-class failures, and a per-attempt timeout budget.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/louisbranch/council.space/internal/platform/timeouts"
	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// Defaults for the backoff schedule. The initial delay doubles per attempt,
// jittered, and never exceeds MaxDelay.
const (
	DefaultMaxRetries   = 2
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
)

// Policy configures retries and the per-attempt budget for one call class.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first call.
	MaxRetries int
	// InitialDelay seeds the exponential backoff schedule.
	InitialDelay time.Duration
	// MaxDelay caps any single backoff interval.
	MaxDelay time.Duration
	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DeliberationPolicy is the long-budget policy for primary council calls.
func DeliberationPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Timeout:      timeouts.DeliberationCall,
	}
}

// AuxiliaryPolicy is the short-budget policy for secondary calls such as
// title generation.
func AuxiliaryPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Timeout:      timeouts.AuxiliaryCall,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = timeouts.DeliberationCall
	}
	return p
}

// Retryable reports whether an error belongs to the transient class.
// Provider errors carry their own classification; bare context deadline
// failures count as timeouts.
func Retryable(err error) bool {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do executes op under the policy. Transient failures are retried with
// exponential backoff and jitter; client-class failures return immediately.
// After retry exhaustion the last transient error is returned unchanged so
// callers can still read its retryable classification.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = policy.InitialDelay
	schedule.MaxInterval = policy.MaxDelay

	attempt := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
		defer cancel()

		value, err := op(attemptCtx)
		if err != nil && !Retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(schedule),
		backoff.WithMaxTries(uint(policy.MaxRetries)+1),
	)
}
