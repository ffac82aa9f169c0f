package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"listingsync/internal/platform/testkit"
)

func TestPingWithBackoff(t *testing.T) {
	testkit.Serial(t)

	var waits []time.Duration
	testkit.Swap(t, &sleep, func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})

	calls := 0
	err := pingWithBackoff(context.Background(), 10, time.Second, func(context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 4 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	want := []time.Duration{150 * time.Millisecond, 300 * time.Millisecond, 600 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v", waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v, want %v", waits, want)
		}
	}
}

func TestPingWithBackoff_CeilingAndExhaustion(t *testing.T) {
	testkit.Serial(t)

	var last time.Duration
	testkit.Swap(t, &sleep, func(_ context.Context, d time.Duration) error {
		last = d
		return nil
	})

	down := errors.New("refused")
	err := pingWithBackoff(context.Background(), 8, time.Second, func(context.Context) error { return down })
	if !errors.Is(err, down) {
		t.Fatalf("want wrapped refused, got %v", err)
	}
	if last != backoffCeiling {
		t.Fatalf("last wait = %v, want ceiling %v", last, backoffCeiling)
	}
}

func TestPingWithBackoff_ContextEnds(t *testing.T) {
	testkit.Serial(t)

	ctx, cancel := context.WithCancel(context.Background())
	testkit.Swap(t, &sleep, func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	err := pingWithBackoff(ctx, 5, time.Second, func(context.Context) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
