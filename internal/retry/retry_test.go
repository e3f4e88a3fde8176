package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errTransient = errors.New("connection reset")
	errFatal     = errors.New("syntax error")
)

func fastPolicy(attempts uint) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var notified []int

	got, err := Do(context.Background(), fastPolicy(3), nil,
		func(attempt int, err error, wait time.Duration) { notified = append(notified, attempt) },
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errTransient
			}
			return "ok", nil
		})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", got, calls)
	}
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Errorf("expected notifications for attempts 1 and 2, got %v", notified)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), nil, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5),
		func(err error) bool { return !errors.Is(err, errFatal) }, nil,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errFatal
		})

	if !errors.Is(err, errFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable errors must not be retried, got %d calls", calls)
	}
}

func TestDoDeadlines(t *testing.T) {
	expired, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		err       error
		wantCalls int
	}{
		{"attempt deadline with live caller is retried", context.Background(), context.DeadlineExceeded, 3},
		{"caller done is not retried", expired, context.DeadlineExceeded, 1},
		{"cancellation is not retried", context.Background(), context.Canceled, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Do(tt.ctx, fastPolicy(3), nil, nil, func(ctx context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name     string
		attempts uint
		known    bool
	}{
		{"quick", 2, true},
		{"standard", 3, true},
		{"aggressive", 5, true},
		{"conservative", 2, true},
		{"bogus", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Preset(tt.name)
			if ok != tt.known || p.MaxAttempts != tt.attempts {
				t.Errorf("Preset(%q) = %+v, %v", tt.name, p, ok)
			}
		})
	}
}

func TestPolicyBackOff(t *testing.T) {
	b := Standard.backOff()
	if b.InitialInterval != time.Second || b.MaxInterval != 10*time.Second || b.Multiplier != 2 {
		t.Errorf("unexpected backoff %+v", b)
	}
	if flat := (Policy{BaseDelay: time.Millisecond, Multiplier: 0.5}).backOff(); flat.Multiplier != 1 {
		t.Errorf("multiplier below 1 should be clamped, got %v", flat.Multiplier)
	}
}
