// Package retry holds the bounded retry policy applied to every source fetch.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// BackoffFunc returns the wait before retry n (n starts at 1).
type BackoffFunc func(n int) time.Duration

// Policy is a value object: at most MaxAttempts calls, Backoff between them.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// Exponential waits base, 2*base, 4*base, ... without jitter or an elapsed
// time cap; the attempt count is what bounds a Policy.
func Exponential(base time.Duration) BackoffFunc {
	return func(n int) time.Duration {
		if n < 1 {
			n = 1
		}
		b := &backoff.ExponentialBackOff{
			InitialInterval:     base,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         time.Duration(math.MaxInt64),
			MaxElapsedTime:      0,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
		b.Reset()

		var d time.Duration
		for i := 0; i < n; i++ {
			d = b.NextBackOff()
		}
		return d
	}
}

func DefaultPolicy() Policy {
	return New(DefaultMaxAttempts, DefaultBaseDelay)
}

// New builds an exponential policy. Non-positive values fall back to defaults.
func New(maxAttempts int, baseDelay time.Duration) Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return Policy{MaxAttempts: maxAttempts, Backoff: Exponential(baseDelay)}
}

// Attempt describes a failed call that is about to be retried.
type Attempt struct {
	Number int
	Max    int
	Delay  time.Duration
	Err    error
}

// Do calls fn until it succeeds, the attempts run out or ctx is done.
// onRetry (optional) is called before each backoff wait.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(Attempt)) error {
	max := p.MaxAttempts
	if max <= 0 {
		max = 1
	}
	next := p.Backoff
	if next == nil {
		next = Exponential(DefaultBaseDelay)
	}

	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("retry: context done after %d attempts: %w", attempt, lastErr)
		}
		if attempt == max {
			break
		}

		wait := next(attempt)
		if onRetry != nil {
			onRetry(Attempt{Number: attempt, Max: max, Delay: wait, Err: err})
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return fmt.Errorf("retry: context done after %d attempts: %w", attempt, lastErr)
		}
	}
	return fmt.Errorf("retry: failed after %d attempts: %w", max, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
