package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := 0
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	err := s.Run(ctx, func(ctx context.Context) error {
		ticks++
		if ticks >= 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ticks < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks)
	}
}

func TestRunContinuesAfterTickError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := 0
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	_ = s.Run(ctx, func(ctx context.Context) error {
		ticks++
		if ticks >= 2 {
			cancel()
			return nil
		}
		return errors.New("transient")
	})
	if ticks < 2 {
		t.Fatalf("loop must survive tick errors, got %d ticks", ticks)
	}
}

func TestStartupDelayHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())
	err := s.Run(ctx, func(ctx context.Context) error {
		t.Fatal("tick must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewPanicsOnBadInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Options{Interval: 0}, zerolog.Nop())
}
