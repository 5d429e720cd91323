package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "reports", "tax", "1")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "reports", "tax", "1")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "reports", "tax", "1")
	require.NoError(t, err)

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]int{"lots": 3}, nil
	}

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestCacheNilDegradesToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "reports", "tax", "1")
	require.NoError(t, err)
	require.Equal(t, "reports:tax:1", key)

	var out map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return map[string]int{"lots": 1}, nil
	}))
	require.Equal(t, 1, out["lots"])
	require.NoError(t, cache.Bump(ctx))
}
