package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errSlow = fmt.Errorf("lookup: %w", context.DeadlineExceeded)

// countingPacer records Wait calls without blocking.
type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(_ context.Context) error {
	p.waits++
	return p.err
}

// recordSleep collects requested backoff delays instead of sleeping.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterTimeouts(t *testing.T) {
	var delays []time.Duration
	cfg := FixedInterval(3, time.Second)
	cfg.Sleep = recordSleep(&delays)

	calls := 0
	val, attempts, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errSlow
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != time.Second {
		t.Errorf("expected two fixed 1s delays, got %v", delays)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	cfg := FixedInterval(3, time.Second)
	cfg.Sleep = recordSleep(&delays)

	_, attempts, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, errSlow
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(delays) != 2 {
		t.Errorf("expected no sleep after the last attempt, got %d sleeps", len(delays))
	}
}

func TestDoVal_NonTimeout_NoRetry(t *testing.T) {
	var delays []time.Duration
	cfg := FixedInterval(3, time.Second)
	cfg.Sleep = recordSleep(&delays)

	_, attempts, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, errors.New("no results")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestDoVal_PacerWaitedBeforeEveryAttempt(t *testing.T) {
	pacer := &countingPacer{}
	cfg := FixedInterval(3, 0)
	cfg.Pacer = pacer

	_, attempts, _ := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, errSlow
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if pacer.waits != 3 {
		t.Errorf("expected 3 pacer waits, got %d", pacer.waits)
	}
}

func TestDoVal_PacerErrorStops(t *testing.T) {
	pacer := &countingPacer{err: context.Canceled}
	cfg := FixedInterval(3, 0)
	cfg.Pacer = pacer

	calls := 0
	_, attempts, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if calls != 0 || attempts != 0 {
		t.Errorf("expected no attempts, got calls=%d attempts=%d", calls, attempts)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := FixedInterval(5, 50*time.Millisecond)

	var calls int
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errSlow
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	errBusy := errors.New("busy")
	cfg := FixedInterval(3, 0)
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, errBusy) }

	var calls int
	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	cfg := FixedInterval(3, 0)
	var seen []int
	cfg.OnRetry = func(attempt int, _ error) { seen = append(seen, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error { return errSlow })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected retries [1 2], got %v", seen)
	}
}

func TestDo_DefaultConfig(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{}, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestFixedInterval(t *testing.T) {
	cfg := applyDefaults(FixedInterval(4, 2*time.Second))
	if cfg.MaxAttempts != 4 {
		t.Errorf("expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	for attempt := 0; attempt < 4; attempt++ {
		if d := computeBackoff(attempt, cfg); d != 2*time.Second {
			t.Errorf("attempt %d: expected 2s, got %v", attempt, d)
		}
	}

	zero := applyDefaults(FixedInterval(0, 0))
	if zero.MaxAttempts != 3 {
		t.Errorf("expected default 3 attempts, got %d", zero.MaxAttempts)
	}
	if d := computeBackoff(1, zero); d != 0 {
		t.Errorf("expected zero backoff, got %v", d)
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	})

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, want := range expected {
		if d := computeBackoff(i, cfg); d != want {
			t.Errorf("attempt %d: expected %v, got %v", i, want, d)
		}
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     10.0,
	})

	if delay := computeBackoff(5, cfg); delay > 5*time.Second {
		t.Errorf("expected delay capped at 5s, got %v", delay)
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	})

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		seen[d] = true
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected range [500ms, 1500ms]", d)
		}
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()
	logger := RetryLogger("nominatim", "search")
	logger(1, errors.New("test error"))
}
