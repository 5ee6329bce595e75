package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach the Redis server holding sessions.
type RedisConfig struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration
	Timeout     time.Duration
	Prefix      string
}

// RedisBackend stores session keys in Redis so that several machines can
// share one signed-in session.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig, scope string) (*RedisBackend, error) {
	const op = "session.NewRedisBackend"

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "botctl"
	}
	return &RedisBackend{client: client, prefix: prefix + ":" + scope + ":"}, nil
}

// Load reads key.
func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "session.RedisBackend.Load"

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

// Save writes key without expiry; sessions end on logout or rejection.
func (r *RedisBackend) Save(ctx context.Context, key string, value []byte) error {
	const op = "session.RedisBackend.Save"

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	const op = "session.RedisBackend.Delete"

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
