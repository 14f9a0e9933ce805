package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrOpen is returned by Call while the breaker rejects calls.
var ErrOpen = eris.New("resilience: circuit open")

// Breaker stops calling a failing upstream after Threshold consecutive
// failures. Once Cooldown has passed one probe call is let through; its
// outcome closes or re-opens the circuit.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// NewBreaker creates a closed breaker. Non-positive arguments default to
// 5 failures and 30s.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Open reports whether a call made now would be rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejects()
}

func (b *Breaker) rejects() bool {
	if b.failures < b.threshold {
		return false
	}
	return b.probing || b.now().Sub(b.openedAt) < b.cooldown
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejects() {
		return eris.Wrapf(ErrOpen, "%s", b.name)
	}
	if b.failures >= b.threshold {
		b.probing = true
	}
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasOpen := b.failures >= b.threshold
	b.probing = false
	if err == nil || errors.Is(err, context.Canceled) {
		if wasOpen && err == nil {
			zap.L().Info("resilience: circuit closed", zap.String("breaker", b.name))
		}
		if err == nil {
			b.failures = 0
		}
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
		zap.L().Warn("resilience: circuit open",
			zap.String("breaker", b.name),
			zap.Int("failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	}
}

// Call runs fn unless the breaker is open. Errors from fn count as failures
// except context cancellation.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.release(err)
	return v, err
}
