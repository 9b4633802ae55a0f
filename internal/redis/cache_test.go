package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/assistant/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestViewCacheSetGet(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewViewCache[[]models.AccountView](client, 0)
	ctx := context.Background()

	views := []models.AccountView{
		{Type: models.Checking, Balance: decimal.RequireFromString("2370.00"), AccountNumber: "402918730983"},
		{Type: models.Savings, Balance: decimal.RequireFromString("15.50"), AccountNumber: "402918738118"},
	}
	cache.Set(ctx, "accounts:user:usr-1", &views)

	got, ok := cache.Get(ctx, "accounts:user:usr-1")
	require.True(t, ok)
	require.Len(t, *got, 2)
	assert.True(t, (*got)[0].Balance.Equal(decimal.RequireFromString("2370")))
	assert.Equal(t, "402918738118", (*got)[1].AccountNumber)
}

func TestViewCacheMiss(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewViewCache[models.AccountView](client, 0)

	got, ok := cache.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestViewCacheCorruptEntry(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewViewCache[models.AccountView](client, 0)
	require.NoError(t, mr.Set("bad", "{not json"))

	_, ok := cache.Get(context.Background(), "bad")
	assert.False(t, ok)
}

func TestViewCacheTTLAndDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewViewCache[models.AccountView](client, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "k", &models.AccountView{AccountNumber: "1"})
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)

	cache.Set(ctx, "k", &models.AccountView{AccountNumber: "1"})
	cache.Delete(ctx, "k")
	assert.False(t, mr.Exists("k"))
}
