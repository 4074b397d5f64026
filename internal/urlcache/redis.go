package urlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Redis is a cache shared by every server instance.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a cache over client with keys stored under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to the server in cfg and pings it.
func OpenRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,

		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return NewRedis(client, cfg.RedisPrefix), nil
}

// Get returns the cached URL for key. Errors count as misses.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	url, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logging.FromContext(ctx).Warn("url cache read failed", "key", key, "error", err)
		return "", false
	}
	return url, true
}

// Set stores url under key; redis expires it after ttl.
func (r *Redis) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, url, ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("url cache write failed", "key", key, "error", err)
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
