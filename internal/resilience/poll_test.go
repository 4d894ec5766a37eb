package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoll_DoneOnThirdAttempt(t *testing.T) {
	policy := PollPolicy{Interval: time.Millisecond, MaxAttempts: 10}

	res, err := Poll(context.Background(), policy, func(ctx context.Context, attempt int) (bool, error) {
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", res.Attempts)
	}
}

func TestPoll_StopsOnError(t *testing.T) {
	failed := errors.New("job failed")
	calls := 0

	_, err := Poll(context.Background(), PollPolicy{Interval: time.Millisecond, MaxAttempts: 10},
		func(ctx context.Context, attempt int) (bool, error) {
			calls++
			return false, failed
		})

	if !errors.Is(err, failed) {
		t.Errorf("Expected fn error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected polling to stop after the error, got %d calls", calls)
	}
}

func TestPoll_Exhausted(t *testing.T) {
	res, err := Poll(context.Background(), PollPolicy{Interval: time.Millisecond, MaxAttempts: 4},
		func(ctx context.Context, attempt int) (bool, error) { return false, nil })

	if !errors.Is(err, ErrPollExhausted) {
		t.Errorf("Expected ErrPollExhausted, got %v", err)
	}
	if res.Attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", res.Attempts)
	}
}

func TestPoll_Timeout(t *testing.T) {
	policy := PollPolicy{Interval: 20 * time.Millisecond, Timeout: 50 * time.Millisecond}

	_, err := Poll(context.Background(), policy,
		func(ctx context.Context, attempt int) (bool, error) { return false, nil })

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestPoll_WaitsInterval(t *testing.T) {
	policy := PollPolicy{Interval: 15 * time.Millisecond, MaxAttempts: 3}
	start := time.Now()

	_, _ = Poll(context.Background(), policy,
		func(ctx context.Context, attempt int) (bool, error) { return attempt == 3, nil })

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Expected at least two intervals between three checks, took %v", elapsed)
	}
}

func TestReconnect_SucceedsAfterFailures(t *testing.T) {
	cfg := &ReconnectConfig{MaxAttempts: 3, Backoff: time.Millisecond, Multiplier: 2, MaxBackoff: 5 * time.Millisecond}
	attempts := 0

	err := Reconnect(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("server selection timeout")
		}
		return nil
	}, cfg, zerolog.Nop())

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestReconnect_GivesUp(t *testing.T) {
	cfg := &ReconnectConfig{MaxAttempts: 2, Backoff: time.Millisecond, Multiplier: 2, MaxBackoff: 5 * time.Millisecond}
	cause := errors.New("no reachable servers")

	err := Reconnect(context.Background(), func(ctx context.Context) error { return cause }, cfg, zerolog.Nop())
	if !errors.Is(err, cause) {
		t.Errorf("Expected last error wrapped, got %v", err)
	}
}
