package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeSetKey is the sorted set holding sent-reminder keys, scored by
// occurrence instant so eviction is a single range removal.
const DedupeSetKey = "lunara:dedupe"

// RedisDedupeCache shares sent-reminder state between stateless server
// invocations. Members are DedupeKey strings, scores are the occurrence
// unix seconds.
type RedisDedupeCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisDedupeCache(client *redis.Client, logger *slog.Logger) *RedisDedupeCache {
	return &RedisDedupeCache{client: client, logger: logger}
}

// Seen reports whether the key was already marked. Redis being
// unreachable reads as "not seen": a duplicate send beats a dropped
// reminder.
func (c *RedisDedupeCache) Seen(ctx context.Context, key DedupeKey) bool {
	err := c.client.ZScore(ctx, DedupeSetKey, key.String()).Err()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Error("dedupe cache read failed", "error", err, "key", key.String())
		return false
	}
	return true
}

func (c *RedisDedupeCache) Mark(ctx context.Context, key DedupeKey) error {
	return c.client.ZAdd(ctx, DedupeSetKey, redis.Z{
		Score:  float64(key.Occurrence.Unix()),
		Member: key.String(),
	}).Err()
}

// Evict drops every entry whose occurrence is before the cutoff.
func (c *RedisDedupeCache) Evict(ctx context.Context, before time.Time) error {
	max := strconv.FormatInt(before.Unix()-1, 10)
	return c.client.ZRemRangeByScore(ctx, DedupeSetKey, "-inf", max).Err()
}
