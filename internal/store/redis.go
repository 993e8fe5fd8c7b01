package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps browser state under prefix:browserID:key. Every read and write
// pushes the key's expiry out to ttl again.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Scope(browserID string) Store {
	return &redisScope{parent: r, browserID: browserID}
}

type redisScope struct {
	parent    *Redis
	browserID string
}

func (s *redisScope) key(key string) string {
	return fmt.Sprintf("%s%s:%s", s.parent.prefix, s.browserID, key)
}

func (s *redisScope) Get(ctx context.Context, key string) (string, bool, error) {
	if s.browserID == "" {
		return "", false, ErrNoBrowser
	}
	var (
		value string
		err   error
	)
	if s.parent.ttl > 0 {
		value, err = s.parent.client.GetEx(ctx, s.key(key), s.parent.ttl).Result()
	} else {
		value, err = s.parent.client.Get(ctx, s.key(key)).Result()
	}
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *redisScope) Set(ctx context.Context, key, value string) error {
	if s.browserID == "" {
		return ErrNoBrowser
	}
	return s.parent.client.Set(ctx, s.key(key), value, s.parent.ttl).Err()
}

func (s *redisScope) Delete(ctx context.Context, keys ...string) error {
	if s.browserID == "" {
		return ErrNoBrowser
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.key(key))
	}
	return s.parent.client.Del(ctx, full...).Err()
}
