package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTTLCache(5 * time.Second)
	cache.now = func() time.Time { return now }

	cache.Set("k", 42)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	// Still valid just before expiry.
	now = now.Add(4 * time.Second)
	_, ok = cache.Get("k")
	assert.True(t, ok)

	// Expired exactly at the boundary.
	now = now.Add(time.Second)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheMissAndClear(t *testing.T) {
	cache := NewTTLCache(time.Minute)

	_, ok := cache.Get("absent")
	assert.False(t, ok)

	cache.Set("k", "v")
	cache.Clear()
	_, ok = cache.Get("k")
	assert.False(t, ok)
}
