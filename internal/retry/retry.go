// Package retry runs an operation under a per-attempt timeout and a fixed
// attempt budget with exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Policy struct {
	Attempts   int           // total attempts, at least 1
	Timeout    time.Duration // per attempt; zero means no timeout
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// Data is used for market data and headline calls.
func Data() Policy {
	return Policy{Attempts: 2, Timeout: 15 * time.Second, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}
}

// Completion is used for reasoning calls.
func Completion() Policy {
	return Policy{Attempts: 3, Timeout: 30 * time.Second, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	for i := 1; i < attempt; i++ {
		d *= m
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a Permanent error, the budget is
// spent or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(p.delay(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("retry: %w (last error: %v)", ctx.Err(), lastErr)
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call(ctx, p.Timeout, fn)
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
