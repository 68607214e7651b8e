package trends

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock records sleeps and advances virtual time without blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func TestRetrier_SuccessFirstAttempt(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(3, 100*time.Millisecond, time.Second, clock)

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if attempts != 1 || len(clock.sleeps) != 0 {
		t.Errorf("Expected 1 attempt and no sleeps, got %d attempts, %d sleeps", attempts, len(clock.sleeps))
	}
}

func TestRetrier_TransientRetriedWithBackoff(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(3, 100*time.Millisecond, time.Second, clock)

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return &FetchError{Kind: KindUpstreamUnavailable, Err: errors.New("503")}
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	// Exponential: base, then doubled.
	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(clock.sleeps) != len(expected) {
		t.Fatalf("Expected %d sleeps, got %v", len(expected), clock.sleeps)
	}
	for i, d := range expected {
		if clock.sleeps[i] != d {
			t.Errorf("Sleep %d: expected %v, got %v", i, d, clock.sleeps[i])
		}
	}
}

func TestRetrier_InvalidRequestNotRetried(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(3, 100*time.Millisecond, time.Second, clock)

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return &FetchError{Kind: KindInvalidRequest, Err: errors.New("400")}
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for invalid request, got %d", attempts)
	}
}

func TestRetrier_TimeoutGetsSingleRetry(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(5, 100*time.Millisecond, time.Second, clock)

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return &FetchError{Kind: KindTimeout, Err: errors.New("deadline")}
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts for timeout, got %d", attempts)
	}
}

func TestRetrier_BackoffCapped(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(5, time.Second, 1500*time.Millisecond, clock)

	_ = r.Do(context.Background(), func() error {
		return &FetchError{Kind: KindRateLimited, Err: errors.New("429")}
	})

	for i, d := range clock.sleeps {
		if d > 1500*time.Millisecond {
			t.Errorf("Sleep %d exceeds cap: %v", i, d)
		}
	}
	if len(clock.sleeps) != 4 {
		t.Errorf("Expected 4 sleeps, got %d", len(clock.sleeps))
	}
}

func TestRetrier_UntypedErrorTreatedTransient(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(2, 100*time.Millisecond, time.Second, clock)

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetrier_ContextCancellation(t *testing.T) {
	clock := newFakeClock()
	r := NewRetrierWithClock(3, 100*time.Millisecond, time.Second, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func() error {
		return &FetchError{Kind: KindUpstreamUnavailable, Err: errors.New("503")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
