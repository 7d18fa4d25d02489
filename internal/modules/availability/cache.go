package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/logger"
)

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, int64, domain.DateRange) ([]Result, bool) { return nil, false }
func (NopCache) Set(context.Context, int64, domain.DateRange, []Result) {}
func (NopCache) Invalidate(context.Context, int64) error { return nil }

// RedisCache keys reports by a per-container version that every mutation bumps,
// so stale reports are never read again and simply age out with the TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCache returns a redis backed cache, or NopCache when client is nil or ttl
// is not positive.
func NewCache(client *redis.Client, ttl time.Duration, log *logger.Logger) Cache {
	if client == nil || ttl <= 0 {
		return NopCache{}
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func versionKey(containerID int64) string {
	return fmt.Sprintf("avail:%d:ver", containerID)
}

func (c *RedisCache) reportKey(ctx context.Context, containerID int64, r domain.DateRange) (string, error) {
	ver, err := c.client.Get(ctx, versionKey(containerID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("avail:%d:v%d:%s:%s", containerID, ver,
		r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)), nil
}

func (c *RedisCache) Get(ctx context.Context, containerID int64, r domain.DateRange) ([]Result, bool) {
	key, err := c.reportKey(ctx, containerID, r)
	if err != nil {
		c.log.Warn("availability cache version lookup failed", "container_id", containerID, "error", err)
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("availability cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var out []Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *RedisCache) Set(ctx context.Context, containerID int64, r domain.DateRange, results []Result) {
	key, err := c.reportKey(ctx, containerID, r)
	if err != nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("availability cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, containerID int64) error {
	return c.client.Incr(ctx, versionKey(containerID)).Err()
}
