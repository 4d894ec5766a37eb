package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted is returned when a poll runs out of attempts.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// PollPolicy bounds a status-polling loop. A zero MaxAttempts or Timeout
// means that bound is not applied; at least one of them should be set.
type PollPolicy struct {
	Interval    time.Duration // Fixed wait between status checks
	MaxAttempts int           // Maximum number of status checks
	Timeout     time.Duration // Overall deadline for the whole poll
}

// DefaultPollPolicy checks once per second for up to two minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    time.Second,
		MaxAttempts: 120,
		Timeout:     2 * time.Minute,
	}
}

// PollFunc performs one status check. Returning done=true or a non-nil
// error stops the poll.
type PollFunc func(ctx context.Context, attempt int) (done bool, err error)

// PollResult reports how a poll finished.
type PollResult struct {
	Attempts int
	Elapsed  time.Duration
}

// Poll calls fn immediately and then every policy.Interval until fn reports
// done, fn fails, the attempts run out (ErrPollExhausted), or the deadline
// passes (context.DeadlineExceeded).
func Poll(ctx context.Context, policy PollPolicy, fn PollFunc) (PollResult, error) {
	start := time.Now()
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	var result PollResult
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}

		result.Attempts = attempt
		done, err := fn(ctx, attempt)
		if err != nil || done {
			result.Elapsed = time.Since(start)
			return result, err
		}

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("%w after %d attempts", ErrPollExhausted, attempt)
		}

		timer := time.NewTimer(policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Elapsed = time.Since(start)
			return result, ctx.Err()
		case <-timer.C:
		}
	}
}
