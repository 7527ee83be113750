package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(8)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "file:1", "https://files/1", time.Minute))
	v, ok, err := c.Get(ctx, "file:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://files/1", v)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "file:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New("", "helpdesk:", 0)
	require.NoError(t, err)
	_, isMemory := c.(*MemoryCache)
	assert.True(t, isMemory)
}
