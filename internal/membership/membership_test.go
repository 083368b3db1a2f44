package membership

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	index := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { index.Close() })
	return index
}

func TestSetKey(t *testing.T) {
	assert.Equal(t, "binance:new_order:ADA/BTC:buy", SetKey("binance", NewOrder, "ADA/BTC", "buy"))
	assert.Equal(t, "kucoin:canceled_order:ETH/BTC:sell", SetKey("kucoin", CanceledOrder, "ETH/BTC", "sell"))
}

func TestAddAndIsMember(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	key := SetKey("binance", NewOrder, "ADA/BTC", "buy")

	ok, err := index.IsMember(ctx, key, "20759607")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, index.Add(ctx, key, "20759607"))

	ok, err = index.IsMember(ctx, key, "20759607")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same id under a different scope stays invisible.
	ok, err = index.IsMember(ctx, SetKey("binance", CanceledOrder, "ADA/BTC", "buy"), "20759607")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddIsIdempotent(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	key := SetKey("binance", NewOrder, "ADA/BTC", "buy")

	require.NoError(t, index.Add(ctx, key, "a"))
	require.NoError(t, index.Add(ctx, key, "a"))
	require.NoError(t, index.Add(ctx, key, "b"))

	members, err := index.Members(ctx, key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)
}
