package kvcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore(nil)

	require.NoError(t, store.Set("history:user-1", "42", 0))

	val, ok, err := store.Get("history:user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", val)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore(nil)

	_, ok, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock)

	require.NoError(t, store.Set("throttle:user-1", "1", 30*time.Second))

	_, ok, err := store.Get("throttle:user-1")
	require.NoError(t, err)
	assert.True(t, ok, "entry should be live before TTL elapses")

	clock.Advance(29 * time.Second)
	_, ok, _ = store.Get("throttle:user-1")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = store.Get("throttle:user-1")
	assert.False(t, ok, "entry should expire exactly at the deadline")
}

func TestMemoryStoreOverwriteResetsTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock)

	require.NoError(t, store.Set("k", "a", 10*time.Second))
	clock.Advance(8 * time.Second)
	require.NoError(t, store.Set("k", "b", 10*time.Second))
	clock.Advance(8 * time.Second)

	val, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", val)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(nil)

	require.NoError(t, store.Set("k", "v", 0))
	require.NoError(t, store.Delete("k"))

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
