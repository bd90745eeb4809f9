package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/phonelife/storefront/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(sessionID, storageKey string) string
}

// RedisStorage persists one session's cart in redis under pl:cart:<session>:<key>.
type RedisStorage struct {
	client    redisKV
	sessionID string
	ttl       time.Duration
}

// NewRedisStorage returns a session-scoped storage. A zero ttl keeps entries forever.
func NewRedisStorage(client redisKV, sessionID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *RedisStorage) Read(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.client.CartKey(s.sessionID, key))
	if errors.Is(err, pkgredis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get cart: %w", err)
	}
	return val, true, nil
}

func (s *RedisStorage) Write(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.client.CartKey(s.sessionID, key), value, s.ttl); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
