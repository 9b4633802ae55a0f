package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eaglebank/assistant/internal/logger"
	goredis "github.com/redis/go-redis/v9"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Pass a ttl of 0 for keys that should not expire.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			lg := logger.FromContext(ctx)
			lg.Warn().Err(err).Str("key", key).Msg("view cache read failed")
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Str("key", key).Msg("view cache entry unreadable")
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it under key. Failures are logged only.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Str("key", key).Msg("view cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Str("key", key).Msg("view cache write failed")
	}
}

func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Str("key", key).Msg("view cache delete failed")
	}
}
