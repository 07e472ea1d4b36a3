package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Title string `json:"title"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestCache_SetGetDelete(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var got entry
	ok, err := c.Get(ctx, "image:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "image:1", entry{Title: "car"}))
	ok, err = c.Get(ctx, "image:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "car", got.Title)
	assert.Equal(t, time.Minute, mr.TTL("image:1"))

	require.NoError(t, c.Delete(ctx, "image:1"))
	assert.False(t, mr.Exists("image:1"))
}

func TestCache_Expires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "image:1", entry{Title: "car"}))
	mr.FastForward(2 * time.Minute)

	var got entry
	ok, err := c.Get(ctx, "image:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_InvalidateImageBumpsGeneration(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, gen)

	require.NoError(t, c.Set(ctx, ImageKey("1"), entry{Title: "car"}))
	require.NoError(t, c.InvalidateImage(ctx, "1"))

	assert.False(t, mr.Exists(ImageKey("1")))
	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
	assert.NotEqual(t, ListKey(0, 1, 9, ""), ListKey(gen, 1, 9, ""))
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.Nil(t, New(nil, time.Minute))
	require.NoError(t, c.Set(ctx, "k", entry{}))
	ok, err := c.Get(ctx, "k", &entry{})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.InvalidateImage(ctx, "1"))
}
