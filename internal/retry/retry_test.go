package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy keeps backoff sleeps out of the test run.
func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Microsecond,
		Multiplier:  2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	out := Do(context.Background(), fastPolicy(3), "fallback", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	if out.Fallback {
		t.Fatalf("unexpected fallback: %s", out.Reason)
	}
	if out.Value != "ok" {
		t.Errorf("Value = %q, want %q", out.Value, "ok")
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out := Do(context.Background(), fastPolicy(3), "fallback", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "classified", nil
	})

	if out.Fallback {
		t.Fatalf("unexpected fallback: %s", out.Reason)
	}
	if out.Value != "classified" {
		t.Errorf("Value = %q, want %q", out.Value, "classified")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ExhaustionReturnsFallback(t *testing.T) {
	calls := 0
	out := Do(context.Background(), fastPolicy(3), 42, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("service down")
	})

	if !out.Fallback {
		t.Fatal("expected fallback outcome")
	}
	if out.Value != 42 {
		t.Errorf("Value = %d, want fallback 42", out.Value)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts (3)", calls)
	}
	if out.Reason == "" {
		t.Error("expected failure reason to be recorded")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}, "fallback",
		func(ctx context.Context) (string, error) {
			return "", errors.New("transient")
		})

	if !out.Fallback {
		t.Fatal("expected fallback after cancellation")
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2.0, MaxDelay: 5 * time.Second}

	tests := []struct {
		attempt uint
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_DelayJitter(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2.0, JitterPercent: 50}

	lo, hi := 500*time.Millisecond, 1500*time.Millisecond
	varied := false
	first := p.Delay(0)
	for i := 0; i < 100; i++ {
		d := p.Delay(0)
		if d < lo || d > hi {
			t.Fatalf("Delay(0) = %v, want within [%v, %v]", d, lo, hi)
		}
		if d != first {
			varied = true
		}
	}
	if !varied {
		t.Error("jittered delays should not all be identical")
	}
}

func TestPolicy_NormalizedDefaults(t *testing.T) {
	var p Policy
	out := Do(context.Background(), p, "", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if out.Fallback || out.Value != "ok" {
		t.Fatalf("zero policy should still execute, got %+v", out)
	}
}
