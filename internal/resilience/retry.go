// Package resilience holds the retry and circuit-breaker helpers shared by
// the search and extraction adapters.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is an exponential retry policy. Zero fields take the defaults of
// DefaultBackoff.
type Backoff struct {
	Attempts int           // total tries, including the first
	Base     time.Duration // delay before the second try
	Max      time.Duration
	Jitter   float64 // +/- fraction applied to each delay

	// Retry decides whether an error is retried. Defaults to Retryable.
	Retry func(error) bool
}

// DefaultBackoff is three tries starting at 500ms.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Base: 500 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.25}
}

func (b Backoff) withDefaults() Backoff {
	d := DefaultBackoff()
	if b.Attempts <= 0 {
		b.Attempts = d.Attempts
	}
	if b.Base <= 0 {
		b.Base = d.Base
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	if b.Retry == nil {
		b.Retry = Retryable
	}
	return b
}

// delay returns the wait before try n+1 (n counts from 1).
func (b Backoff) delay(n int) time.Duration {
	d := b.Base << (n - 1)
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	if b.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * b.Jitter * float64(d))
	}
	return max(d, 0)
}

// Retry calls fn until it succeeds, returns an error b does not retry, or
// runs out of attempts. The last error is returned unchanged. op names the
// call in retry logs.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	b = b.withDefaults()

	var zero T
	for n := 1; ; n++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if n >= b.Attempts || ctx.Err() != nil || !b.Retry(err) {
			return zero, err
		}

		wait := b.delay(n)
		zap.L().Debug("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}
