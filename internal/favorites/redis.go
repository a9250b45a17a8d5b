// SPDX-License-Identifier: MIT

package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "tunewatch:favorites"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Key      string // List key, defaults to tunewatch:favorites
}

// RedisStore keeps favorites in a Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	names, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load favorites: %w", err)
	}
	return names, nil
}

// Save replaces the list in one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, names []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(names) > 0 {
			vals := make([]any, len(names))
			for i, n := range names {
				vals[i] = n
			}
			pipe.RPush(ctx, s.key, vals...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save favorites: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
