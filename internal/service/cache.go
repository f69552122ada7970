package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/metrics"
)

// cachePatterns lists every key family the catalog writes.
var cachePatterns = []string{"movies:*", "movie:*", "recommendations:*"}

// cache is a JSON read-through helper over Redis. A nil client disables it.
type cache struct {
	redis *redis.Client
}

func (c cache) get(ctx context.Context, key string, out interface{}) bool {
	if c.redis == nil {
		return false
	}
	family, _, _ := strings.Cut(key, ":")
	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.RecordCacheLookup(family, false)
		return false
	}
	if err := json.Unmarshal([]byte(cached), out); err != nil {
		metrics.RecordCacheLookup(family, false)
		return false
	}
	metrics.RecordCacheLookup(family, true)
	slog.Debug("cache hit", "key", key)
	return true
}

func (c cache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Error("failed to set cache", "key", key, "error", err)
	}
}

func (c cache) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	for _, pattern := range cachePatterns {
		iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			c.redis.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			slog.Error("failed to scan cache", "pattern", pattern, "error", err)
		}
	}
	slog.Info("Redis cache invalidated")
}

func movieKey(id int) string {
	return fmt.Sprintf("movie:detail:%d", id)
}

func recommendationKey(id int) string {
	return fmt.Sprintf("recommendations:%d", id)
}
