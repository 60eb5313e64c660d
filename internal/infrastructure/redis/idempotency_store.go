package redisstore

import (
	"context"
	"fmt"
	"time"

	"cip-service/internal/application"

	"github.com/redis/go-redis/v9"
)

// Store reserves idempotency keys with SET NX; the value records when the key was taken.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.IdempotencyStore = (*Store)(nil)

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
