package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Удаление по совпадению значения одним атомарным шагом —
// стандартный unlock-скрипт Redis.
var deleteIfEquals = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisStore — продовая реализация Store поверх Redis.
// TTL обслуживает сам Redis, фонового подметания нет.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "hold:"}
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("hold setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("hold get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) DeleteIfValueEquals(ctx context.Context, key, expected string) (bool, error) {
	n, err := deleteIfEquals.Run(ctx, s.client, []string{s.prefix + key}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("hold conditional delete: %w", err)
	}
	return n == 1, nil
}
