package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), func(_ context.Context, _ int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	err := WithBackoff(context.Background(), fastConfig(2), func(_ context.Context, _ int) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("WithBackoff() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestWithBackoff_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := WithBackoff(ctx, &Config{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}, func(_ context.Context, _ int) error {
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithBackoff() error = %v, want context.Canceled", err)
	}
}

func TestDelayFor_CapsAtMaxDelay(t *testing.T) {
	cfg := &Config{
		InitialDelay: time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}

	if d := delayFor(cfg, 1); d != time.Second {
		t.Errorf("delayFor(1) = %v, want 1s", d)
	}
	if d := delayFor(cfg, 2); d != 2*time.Second {
		t.Errorf("delayFor(2) = %v, want 2s", d)
	}
	if d := delayFor(cfg, 10); d != 4*time.Second {
		t.Errorf("delayFor(10) = %v, want cap 4s", d)
	}
}
