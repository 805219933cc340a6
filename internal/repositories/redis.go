package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/mediadesk/internal/shared"
)

const redisOpTimeout = 5 * time.Second

// NewRedisClient creates a [redis.Client] from c. The connection is established lazily.
func NewRedisClient(c shared.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: redisOpTimeout,
	})
}

// RedisStorage keeps every session key as a field of one Redis hash.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage stores fields under the hash at key.
func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	return &RedisStorage{client: client, key: key}
}

// Ping checks that the server is reachable.
func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storageErr("ping", s.key, err)
	}
	return nil
}

func (s *RedisStorage) Get(field string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := s.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get", field, err)
	}
	return v, true, nil
}

func (s *RedisStorage) Set(field, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return storageErr("set", field, err)
	}
	return nil
}

func (s *RedisStorage) Remove(field string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.HDel(ctx, s.key, field).Err(); err != nil {
		return storageErr("remove", field, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
