package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPeriodicValidation(t *testing.T) {
	if _, err := NewPeriodic("x", time.Second, nil); err == nil {
		t.Error("expected error for nil job")
	}
	job := func(context.Context, time.Time) (int, error) { return 0, nil }
	if _, err := NewPeriodic("x", 0, job); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestPeriodicRunsAtStartupAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	p, err := NewPeriodic("count", 10*time.Millisecond, func(context.Context, time.Time) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	if err != nil {
		t.Fatalf("NewPeriodic: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 3", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if p.Runs() < 3 {
		t.Errorf("Runs() = %d, want at least 3", p.Runs())
	}
	if p.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", p.Failures())
	}
}

func TestPeriodicCountsFailuresAndKeepsRunning(t *testing.T) {
	var calls atomic.Int32
	p, err := NewPeriodic("flaky", 10*time.Millisecond, func(context.Context, time.Time) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("store unavailable")
		}
		return 2, nil
	})
	if err != nil {
		t.Fatalf("NewPeriodic: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("job was not retried after a failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if p.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", p.Failures())
	}
}

func TestPeriodicPassesNow(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	got := make(chan time.Time, 1)
	p, err := NewPeriodic("clock", time.Hour, func(_ context.Context, now time.Time) (int, error) {
		select {
		case got <- now:
		default:
		}
		return 0, nil
	})
	if err != nil {
		t.Fatalf("NewPeriodic: %v", err)
	}
	p.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	select {
	case now := <-got:
		if !now.Equal(fixed) {
			t.Errorf("job got %v, want %v", now, fixed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at startup")
	}
}
