package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errProvider = errors.New("provider down")

func newTestBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&Config{
		Name:             "test",
		MaxFailures:      maxFailures,
		Timeout:          timeout,
		HalfOpenMaxCalls: 1,
	})
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, func() error { return errProvider })
		if !errors.Is(err, errProvider) {
			t.Fatalf("Execute() error = %v, want provider error", err)
		}
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	err := cb.Execute(ctx, func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return errProvider })
	}
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Two more failures must not open the circuit after the reset
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return errProvider })
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errProvider })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	// Probe succeeds; circuit closes
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Execute() probe error = %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed after recovery", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errProvider })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(ctx, func() error { return errProvider })
	if cb.GetState() != StateOpen {
		t.Errorf("state = %s, want open after failed probe", cb.GetState())
	}
}
