// Package wait replaces fixed settle sleeps with bounded condition polling.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a condition is still false after the policy timeout.
var ErrTimeout = errors.New("condition not met before timeout")

// Condition reports whether the awaited state has been reached. A returned
// error is treated as "not yet": pages in the middle of a navigation fail
// queries routinely. The last error is attached to ErrTimeout.
type Condition func(ctx context.Context) (bool, error)

// Policy bounds a wait.
type Policy struct {
	Timeout     time.Duration // total time allowed (ex: 15s)
	Interval    time.Duration // initial wait between polls (ex: 500ms, grows exponentially)
	MaxInterval time.Duration // max wait between polls (ex: 5s)
}

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = 100 * time.Millisecond
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	return p
}

// Until polls cond until it reports true, the policy timeout elapses or ctx is done.
// The condition is always evaluated at least once, even with a zero timeout.
// It returns the number of polls performed alongside any error.
func Until(ctx context.Context, policy Policy, cond Condition) (int, error) {
	policy = policy.normalized()

	waitCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	attempt := 0
	wait := policy.Interval
	var lastErr error

	for {
		attempt++

		ok, err := cond(ctx)
		if err == nil && ok {
			return attempt, nil
		}
		if err != nil {
			lastErr = err
		}

		timer := time.NewTimer(wait)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return attempt, ctxErr
			}
			if lastErr != nil {
				return attempt, fmt.Errorf("%w after %d polls (%v): last error: %w", ErrTimeout, attempt, policy.Timeout, lastErr)
			}
			return attempt, fmt.Errorf("%w after %d polls (%v)", ErrTimeout, attempt, policy.Timeout)

		case <-timer.C:
			// Exponential backoff with cap
			wait *= 2
			if wait > policy.MaxInterval {
				wait = policy.MaxInterval
			}
		}
	}
}

// Settle is Until for waits whose expiry is acceptable: ErrTimeout is reported
// as (false, nil) so the caller can proceed and judge the page itself.
func Settle(ctx context.Context, policy Policy, cond Condition) (bool, error) {
	_, err := Until(ctx, policy, cond)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrTimeout):
		return false, nil
	default:
		return false, err
	}
}
