package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is loaded with prefix REDIS.
type RedisConfig struct {
	Addr         string        `envconfig:"ADDR" default:"localhost:6379"`
	Username     string        `envconfig:"USERNAME"`
	Password     string        `envconfig:"PASSWORD"`
	DB           int           `envconfig:"DB" default:"0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" split_words:"true" default:"chative:cache:"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"500ms"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"500ms"`
}

// RedisStore is a Store backed by Redis SET EX / GET.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return NewRedisStoreFromClient(client, cfg.KeyPrefix)
}

func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	const batchSize = 200

	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", batchSize).Iterator()
	keys := make([]string, 0, batchSize)
	deleted := 0
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += int(n)
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= batchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
