package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
)

var client *redis.Client

// SetupCache initializes the connection to the Redis cache server (DB 0).
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	Connect(fmt.Sprintf("%s:%s", host, port), env.GetEnv("CACHE_PASSWORD", ""))
}

// Connect replaces the package client. Tests point it at miniredis.
func Connect(addr, password string) *redis.Client {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to %s: %v", addr, err)
	} else {
		log.Infof("[Cache] Connected to %s: %s", addr, pong)
	}
	return client
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(ctx context.Context, key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt64 retrieves an integer value from the cache by key
func GetInt64(ctx context.Context, key string) (int64, error) {
	return GetClient().Get(ctx, key).Int64()
}

// Delete removes values from the cache
func Delete(ctx context.Context, keys ...string) error {
	return GetClient().Del(ctx, keys...).Err()
}

// IsMiss reports whether err means the key was not cached.
func IsMiss(err error) bool {
	return err == redis.Nil
}
