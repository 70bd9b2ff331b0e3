package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BackoffStep = time.Millisecond
	return cfg
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return NewHTTPError(http.StatusTooManyRequests, "Too Many Requests", "")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := NewHTTPError(http.StatusServiceUnavailable, "Service Unavailable", "")
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		return boom
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	var he HTTPError
	if !errors.As(err, &he) || he.StatusCode != boom.StatusCode {
		t.Fatalf("cannot unwrap last HTTPError from %v", err)
	}
}

func TestWithRetryNonRetryableStatus(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		return NewHTTPError(http.StatusNotFound, "Not Found", "")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryPermanentShortCircuits(t *testing.T) {
	calls := 0
	inner := errors.New("post deleted")
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		return Permanent{Err: inner}
	})
	if !errors.Is(err, inner) {
		t.Fatalf("got %v, want wrapped %v", err, inner)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryRetriesForbidden(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		if calls == 1 {
			return NewHTTPError(http.StatusForbidden, "Forbidden", "")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWithRetryBackoffGrowsLinearly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackoffStep = 40 * time.Millisecond

	var stamps []time.Time
	err := WithRetry(context.Background(), cfg, func() error {
		stamps = append(stamps, time.Now())
		return NewHTTPError(http.StatusBadGateway, "Bad Gateway", "")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}

	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	if first < cfg.BackoffStep {
		t.Fatalf("first wait %v shorter than step %v", first, cfg.BackoffStep)
	}
	if second <= first {
		t.Fatalf("waits must grow: first %v, second %v", first, second)
	}
}

func TestWithRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.BackoffStep = time.Minute
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := WithRetry(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
