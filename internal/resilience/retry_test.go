package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func fast(attempts int) Backoff {
	return Backoff{Attempts: attempts, Base: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fast(3), "search", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", statusErr(http.StatusServiceUnavailable)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fast(5), "search", func(context.Context) (int, error) {
		calls++
		return 0, statusErr(http.StatusUnauthorized)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, statusErr(http.StatusUnauthorized), err)
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fast(2), "search", func(context.Context) (int, error) {
		calls++
		return 0, statusErr(http.StatusTooManyRequests)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_CustomPredicate(t *testing.T) {
	b := fast(3)
	b.Retry = func(error) bool { return true }
	calls := 0
	_, err := Retry(context.Background(), b, "x", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, Backoff{Attempts: 5, Base: time.Hour, Max: time.Hour}, "x", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, statusErr(http.StatusBadGateway)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: 300 * time.Millisecond}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 200*time.Millisecond, b.delay(2))
	assert.Equal(t, 300*time.Millisecond, b.delay(3))
	assert.Equal(t, 300*time.Millisecond, b.delay(80))

	b.Jitter = 0.5
	for range 20 {
		d := b.delay(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", statusErr(429), true},
		{"503 wrapped", fmt.Errorf("jina: %w", statusErr(503)), true},
		{"404", statusErr(404), false},
		{"timeout", timeoutErr{}, true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
		{"plain", errors.New("parse error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
