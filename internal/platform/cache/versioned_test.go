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

func TestVersionedFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewVersioned(client, "locations", time.Minute)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	key, err := c.BuildKey(ctx, "options")
	require.NoError(t, err)
	assert.Equal(t, "locations:options:v1", key)

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, loads)

	ver, err := c.Bump(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)

	key, err = c.BuildKey(ctx, "options")
	require.NoError(t, err)
	assert.Equal(t, "locations:options:v2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, loads)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("locations:options:v1"))
}

func TestVersionedWithoutRedis(t *testing.T) {
	c := NewVersioned(nil, "locations", time.Minute)
	var got int
	require.NoError(t, c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) { return 7, nil }))
	assert.Equal(t, 7, got)

	ver, err := c.Bump(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ver)
}
