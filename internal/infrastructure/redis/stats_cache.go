package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/cip"

	"github.com/redis/go-redis/v9"
)

const statsPrefix = "cip:"

// StatsCache stores aggregated statistics as JSON under cip:{key}.
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.StatsCache = (*StatsCache)(nil)

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{Client: client, TTL: ttl}
}

func (c *StatsCache) Get(ctx context.Context, key string) (*cip.Statistics, bool, error) {
	b, err := c.Client.Get(ctx, statsPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s cip.Statistics
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false, fmt.Errorf("decode cached statistics: %w", err)
	}
	return &s, true, nil
}

func (c *StatsCache) Set(ctx context.Context, key string, s *cip.Statistics) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	return c.Client.Set(ctx, statsPrefix+key, b, c.TTL).Err()
}

// Purge drops every cached statistics entry.
func (c *StatsCache) Purge(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, statsPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
