package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/pkg/database"
)

// DefaultPrefix namespaces storage keys inside a shared Redis.
const DefaultPrefix = "storefront:"

// Storage keeps client storage in Redis strings.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Redis-backed storage. A zero ttl keeps values forever.
func New(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	return &Storage{client: client, prefix: prefix, ttl: ttl}
}

func (s *Storage) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "GetItem", "GET "+s.prefix+key)
	defer func() { end(err) }()

	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

// SetItem writes value and refreshes the TTL.
func (s *Storage) SetItem(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "SetItem", "SET "+s.prefix+key)
	defer func() { end(err) }()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "RemoveItem", "DEL "+s.prefix+key)
	defer func() { end(err) }()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Close() error {
	return s.client.Close()
}
