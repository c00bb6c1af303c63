package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client and pings the server.
func ConnectRedis(addr, password string, database int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          database,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return rdb, nil
}

// RedisStore keeps each key as a plain redis string.
type RedisStore struct {
	Client redis.UniversalClient
}

// NewRedisStore wraps a redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client}
}

// Get reads key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.Client == nil {
		return "", false, ErrNilCollection
	}
	v, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

// Set writes key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s.Client == nil {
		return ErrNilCollection
	}
	if err := s.Client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s.Client == nil {
		return ErrNilCollection
	}
	return s.Client.Del(ctx, key).Err()
}

// Keys scans for keys starting with prefix.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.Client == nil {
		return nil, ErrNilCollection
	}
	var keys []string
	iter := s.Client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
