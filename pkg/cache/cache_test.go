package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "grid:abc", []byte("levels"), TTLGrid); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "grid:abc")
	if hit || data != nil || err != nil {
		t.Errorf("Get after Set = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "grid:abc"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrUnavailable)
	if !IsRetryable(err) || !errors.Is(err, ErrUnavailable) {
		t.Errorf("Retryable(ErrUnavailable) = %v, want retryable wrapping ErrUnavailable", err)
	}
	if err.Error() != ErrUnavailable.Error() {
		t.Errorf("message changed: %s", err.Error())
	}
	if IsRetryable(ErrCorrupt) {
		t.Error("unmarked errors are not retryable")
	}
}

func TestBackoff(t *testing.T) {
	b := Backoff{Attempts: 3, Base: time.Millisecond}
	transient := Retryable(ErrUnavailable)

	tests := []struct {
		name      string
		failures  int   // calls that fail before success
		err       error // error returned by failing calls
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, transient, 1, nil},
		{"one retry", 1, transient, 2, nil},
		{"exhausted", 5, transient, 3, ErrUnavailable},
		{"permanent", 5, ErrCorrupt, 1, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := b.Do(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (tt.wantErr == nil) != (err == nil) || (tt.wantErr != nil && !errors.Is(err, tt.wantErr)) {
				t.Errorf("Do() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := DefaultBackoff.Do(ctx, func() error {
		calls++
		return Retryable(ErrUnavailable)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoffSuccess(t *testing.T) {
	if err := RetryWithBackoff(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("RetryWithBackoff() = %v", err)
	}
}
