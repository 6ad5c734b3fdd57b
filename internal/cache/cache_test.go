package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunevault/tunevault/internal/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, 30*24*time.Hour, 24*time.Hour)
}

func TestKeyCanonicalizesOrderAndCase(t *testing.T) {
	a := Key("AcoustOracle", "Lookup", "FPX", "120")
	b := Key("acoustoracle", "lookup", "120", "fpx")
	assert.Equal(t, a, b)
}

func TestGetMissThenPutThenHit(t *testing.T) {
	c := newTestCache(t)
	key := Key("fp", "lookup", "abc")

	_, _, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Put(key, []byte(`{"x":1}`), false))
	val, neg, ok := c.Get(key)
	require.True(t, ok)
	assert.False(t, neg)
	assert.Equal(t, `{"x":1}`, string(val))
}

func TestNegativeCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	key := Key("meta", "release", "missing-handle")
	require.NoError(t, c.Put(key, nil, true))

	_, neg, ok := c.Get(key)
	require.True(t, ok)
	assert.True(t, neg)
}

func TestHotTierServesWithoutStoreRoundTrip(t *testing.T) {
	c := newTestCache(t)
	key := Key("fp", "lookup", "xyz")
	require.NoError(t, c.Put(key, []byte("v"), false))

	// Close the durable store; the hot tier must still answer.
	require.NoError(t, c.store.Close())
	val, _, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "v", string(val))
}
