package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/whisperer/internal/transport"
)

// fakeClock advances only when the engine sleeps.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time        { return f.now }
func (f *fakeClock) Sleep(d time.Duration) { f.now = f.now.Add(d) }

func envelope(status int) *transport.Envelope {
	return &transport.Envelope{StatusCode: status, Body: map[string]any{}}
}

func TestClientErrorNotRetried(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404} {
		attempts := 0
		eng := New(Budget{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: time.Second}, "/whisper", zerolog.Nop()).
			WithClock(time.Now, func(time.Duration) {})
		env, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
			attempts++
			return envelope(status), nil
		})
		if err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		if attempts != 1 {
			t.Errorf("status %d: %d attempts, want 1", status, attempts)
		}
		if env.StatusCode != status {
			t.Errorf("status %d: envelope status %d", status, env.StatusCode)
		}
	}
}

func TestServerFaultRetriedToExhaustion(t *testing.T) {
	for _, status := range []int{429, 500, 503} {
		attempts := 0
		eng := New(Budget{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: time.Second}, "/whisper", zerolog.Nop()).
			WithClock(time.Now, func(time.Duration) {})
		env, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
			attempts++
			return envelope(status), nil
		})
		if err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		if attempts != 4 {
			t.Errorf("status %d: %d attempts, want max_retries+1 = 4", status, attempts)
		}
		if env.StatusCode != status {
			t.Errorf("status %d: final envelope status %d", status, env.StatusCode)
		}
	}
}

func TestTransportErrorPropagatesAfterExhaustion(t *testing.T) {
	boom := errors.New("connection refused")
	attempts := 0
	eng := New(Budget{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: time.Second}, "/whisper", zerolog.Nop()).
		WithClock(time.Now, func(time.Duration) {})
	_, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		attempts++
		return nil, boom
	})
	if attempts != 3 {
		t.Errorf("%d attempts, want 3", attempts)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the transport error", err)
	}
}

func TestZeroRetriesMeansSingleAttempt(t *testing.T) {
	attempts := 0
	eng := New(Budget{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Second}, "/whisper", zerolog.Nop()).
		WithClock(time.Now, func(time.Duration) {})
	env, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		attempts++
		return envelope(500), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 1 {
		t.Errorf("%d attempts, want 1", attempts)
	}
	if env.StatusCode != 500 {
		t.Errorf("envelope status %d", env.StatusCode)
	}
}

func TestDeadlineCapsEffectiveTimeout(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	deadline := clk.now.Add(2 * time.Second)
	var effective time.Duration
	eng := New(Budget{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Second, Deadline: deadline}, "/whisper", zerolog.Nop()).
		WithClock(clk.Now, clk.Sleep)
	_, err := eng.Do(context.Background(), 10*time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		effective = timeout
		return envelope(200), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if effective != 2*time.Second {
		t.Errorf("effective timeout = %v, want the 2s remaining to deadline, not the 10s request timeout", effective)
	}
}

func TestDeadlineHaltsRetriesEarly(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	// Deadline allows roughly two backoff sleeps of ~1s before expiring,
	// far fewer than the 10 retries the budget would otherwise allow.
	deadline := clk.now.Add(1500 * time.Millisecond)
	attempts := 0
	eng := New(Budget{MaxRetries: 10, MinWait: time.Second, MaxWait: time.Second, Deadline: deadline}, "/whisper", zerolog.Nop()).
		WithClock(clk.Now, clk.Sleep)
	env, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		attempts++
		return envelope(503), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts >= 11 {
		t.Errorf("%d attempts, want strictly fewer than max_retries+1", attempts)
	}
	if env.StatusCode != 503 {
		t.Errorf("expected last known response, got status %d", env.StatusCode)
	}
}

func TestExpiredDeadlineWithNoResponsePropagatesSentinel(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	eng := New(Budget{MaxRetries: 3, MinWait: time.Second, MaxWait: time.Second, Deadline: clk.now.Add(-time.Second)}, "/whisper", zerolog.Nop()).
		WithClock(clk.Now, clk.Sleep)
	attempts := 0
	_, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		attempts++
		return envelope(200), nil
	})
	if attempts != 0 {
		t.Errorf("%d attempts, want 0 for an already-expired deadline", attempts)
	}
	if !errors.Is(err, ErrDeadlineExhausted) {
		t.Errorf("err = %v", err)
	}
}

func TestSuccessAfterTransientFailures(t *testing.T) {
	attempts := 0
	eng := New(Budget{MaxRetries: 5, MinWait: time.Millisecond, MaxWait: time.Second}, "/whisper-status", zerolog.Nop()).
		WithClock(time.Now, func(time.Duration) {})
	env, err := eng.Do(context.Background(), time.Second, func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error) {
		attempts++
		if attempts < 3 {
			return envelope(503), nil
		}
		return envelope(200), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("%d attempts", attempts)
	}
	if env.StatusCode != 200 {
		t.Errorf("status = %d", env.StatusCode)
	}
}
