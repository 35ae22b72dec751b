package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemoryCache_ExpiresLazily(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_MissReturnsFalse(t *testing.T) {
	c := NewMemoryCache()
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}
