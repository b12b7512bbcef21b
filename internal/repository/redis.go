package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propdesk/internal/config"

	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "otp:"

type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisClient builds a client from config without connecting.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (r *RedisCodeStore) SaveCode(ctx context.Context, target string, hash []byte, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, otpKeyPrefix+target, hash, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set code in redis: %w", err)
	}
	return nil
}

func (r *RedisCodeStore) GetCode(ctx context.Context, target string) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, otpKeyPrefix+target).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code from redis: %w", err)
	}
	return val, nil
}

func (r *RedisCodeStore) DeleteCode(ctx context.Context, target string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, otpKeyPrefix+target).Err(); err != nil {
		return fmt.Errorf("failed to delete code from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
