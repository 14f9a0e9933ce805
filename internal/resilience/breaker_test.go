package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(context.Context) (int, error) { return 0, errors.New("upstream down") }
func working(context.Context) (int, error) { return 1, nil }

func newTestBreaker(clock *time.Time) *Breaker {
	b := NewBreaker("jina_reader", 3, time.Minute)
	b.now = func() time.Time { return *clock }
	return b
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := time.Now()
	b := newTestBreaker(&clock)

	for range 3 {
		_, err := Call(context.Background(), b, failing)
		require.Error(t, err)
	}
	assert.True(t, b.Open())

	calls := 0
	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "jina_reader")
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	clock := time.Now()
	b := newTestBreaker(&clock)

	_, _ = Call(context.Background(), b, failing)
	_, _ = Call(context.Background(), b, failing)
	_, err := Call(context.Background(), b, working)
	require.NoError(t, err)
	_, _ = Call(context.Background(), b, failing)
	assert.False(t, b.Open())
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	clock := time.Now()
	b := newTestBreaker(&clock)
	for range 3 {
		_, _ = Call(context.Background(), b, failing)
	}

	clock = clock.Add(time.Minute)
	assert.False(t, b.Open())

	// A failed probe re-opens for another cooldown.
	_, err := Call(context.Background(), b, failing)
	require.Error(t, err)
	assert.True(t, b.Open())

	clock = clock.Add(time.Minute)
	v, err := Call(context.Background(), b, working)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, b.Open())
}

func TestBreaker_CanceledCallsDoNotCount(t *testing.T) {
	clock := time.Now()
	b := newTestBreaker(&clock)
	for range 5 {
		_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
			return 0, context.Canceled
		})
	}
	assert.False(t, b.Open())
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("x", 0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
