package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 3, 1*time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.GetState())
	}
	if !cb.allowRequest() {
		t.Error("Expected to allow request in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 3, 1*time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}
	if cb.allowRequest() {
		t.Error("Expected to not allow request in Open state")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 3, 1*time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)
	cb.RecordResult(false)

	if cb.GetState() != StateClosed {
		t.Error("Expected non-consecutive failures to keep the circuit Closed")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 1, 50*time.Millisecond)
	cb.RecordResult(false)

	time.Sleep(80 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }, nil); err != nil {
			t.Fatalf("Call %d in half-open failed: %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected Closed after successes in HalfOpen, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpenAfterFailureInHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 1, 50*time.Millisecond)
	cb.RecordResult(false)

	time.Sleep(80 * time.Millisecond)

	if !cb.allowRequest() {
		t.Fatal("Expected to allow request after reset timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HalfOpen, got %s", cb.GetState())
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after failure in HalfOpen")
	}
}

func TestCircuitBreaker_CallOpen(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 1, 1*time.Second)
	cb.RecordResult(false)

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	}, nil)

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn not to run while Open")
	}
}

func TestCircuitBreaker_CallIgnoresNonFailures(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 1, 1*time.Second)
	clientErr := errors.New("bad request")

	err := cb.Call(func() error { return clientErr }, func(err error) bool { return false })
	if err != clientErr {
		t.Errorf("Expected error to pass through, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Error("Expected ignored errors not to trip the breaker")
	}
}

func TestCircuitBreaker_StateChangeHook(t *testing.T) {
	cb := NewCircuitBreaker("assemblyai", 1, 20*time.Millisecond)
	var states []CircuitState
	failures := 0
	cb.OnStateChange = func(name string, s CircuitState) { states = append(states, s) }
	cb.OnFailure = func(name string) { failures++ }

	cb.RecordResult(false)
	time.Sleep(40 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }, nil); err != nil {
			t.Fatalf("Call %d failed: %v", i, err)
		}
	}

	if failures != 1 {
		t.Errorf("Expected 1 failure callback, got %d", failures)
	}
	want := []CircuitState{StateOpen, StateHalfOpen, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("Expected %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, states)
			break
		}
	}
}
