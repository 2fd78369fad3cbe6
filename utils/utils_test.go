package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryCache(t *testing.T) *QueryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueryCache(client, "search", time.Minute)
}

func TestQueryCacheKeyIgnoresParamOrder(t *testing.T) {
	q := newQueryCache(t)
	a := q.Key("dealers", map[string]string{"q": "acme", "size": "20"})
	b := q.Key("dealers", map[string]string{"size": "20", "q": "acme"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, q.Key("dealers", map[string]string{"q": "acme", "size": "10"}))
	assert.Contains(t, a, "search:dealers:")
}

func TestQueryCacheRoundTripAndInvalidate(t *testing.T) {
	q := newQueryCache(t)
	ctx := context.Background()
	dealerKey := q.Key("dealers", map[string]string{"q": "acme"})
	branchKey := q.Key("branches", map[string]string{"q": "central"})
	require.NoError(t, q.Set(ctx, dealerKey, map[string]int{"total": 3}))
	require.NoError(t, q.Set(ctx, branchKey, map[string]int{"total": 1}))

	var got map[string]int
	found, err := q.Get(ctx, dealerKey, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got["total"])

	require.NoError(t, q.Invalidate(ctx, "dealers"))
	found, err = q.Get(ctx, dealerKey, &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = q.Get(ctx, branchKey, &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFileChecksum(t *testing.T) {
	assert.Equal(t, FileChecksum([]byte("a,b\n1,2\n")), FileChecksum([]byte("a,b\n1,2\n")))
	assert.Len(t, FileChecksum(nil), 64)
}
