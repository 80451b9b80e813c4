package redis

import (
	"errors"
	"testing"
	"time"
)

var errRedisDown = errors.New("redis down")

func tripBreaker(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errRedisDown })
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("new breaker state = %v, want closed", got)
	}
}

func TestBreakerTripsAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errRedisDown }); !errors.Is(err, errRedisDown) {
			t.Fatalf("Execute #%d returned %v, want errRedisDown", i+1, err)
		}
	}
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", got)
	}

	// While open the callback must not run at all.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute while open returned %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("callback ran while breaker was open")
	}
}

func TestBreakerClosesAfterRecovery(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	tripBreaker(cb, 2)
	if cb.CurrentState() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after reset timeout: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state after successful trial call = %v, want closed", got)
	}
}

func TestBreakerReopensWhenRecoveryFails(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	tripBreaker(cb, 2)

	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return errRedisDown })

	if got := cb.CurrentState(); got != StateOpen {
		t.Errorf("state after failed trial call = %v, want open", got)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	tripBreaker(cb, 2)
	cb.Execute(func() error { return nil })
	tripBreaker(cb, 2)

	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state = %v, want closed since the success reset the count", got)
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	cb.Execute(func() error { return errRedisDown })
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Fatalf("transitions after trip = %v, want [open]", transitions)
	}

	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}
