package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(2, 1)

	for range 10 {
		a.OnSuccess()
	}
	assert.InDelta(t, 4.0, float64(a.Limit()), 1e-9)

	for range 10 {
		a.OnRateLimit()
	}
	assert.InDelta(t, 0.5, float64(a.Limit()), 1e-9)
}

func TestAdaptiveLimiter_Wait(t *testing.T) {
	a := NewAdaptiveLimiter(rate.Inf, 0)
	require.NoError(t, a.Wait(context.Background()))
}
