package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquirePaces(t *testing.T) {
	l := New(map[string]float64{"svc": 5}) // 200ms between tokens after burst
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "svc")) // consumes the initial burst token

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "svc"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestAcquireObservesCancellation(t *testing.T) {
	l := New(map[string]float64{"svc": 0.1}) // very slow
	require.NoError(t, l.Acquire(context.Background(), "svc"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx, "svc")
	assert.Error(t, err)
}

func TestUnknownServiceIsUnlimited(t *testing.T) {
	l := New(map[string]float64{"svc": 1})
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "other"))
	require.NoError(t, l.Acquire(context.Background(), "other"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
