package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/main4/cmms/pkg/config"
)

var (
	client *redis.Client
	ctx    = context.Background()
	ttl    = 5 * time.Minute
)

// ErrMiss is returned when a key is not present in the cache.
var ErrMiss = fmt.Errorf("cache miss")

// Init initializes the Redis client used for list-query caching
func Init(conf *config.RedisConfig) error {
	client = redis.NewClient(&redis.Options{
		Addr:         conf.Addr(),
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", conf.Addr(), err)
	}

	ttl = conf.TTL
	return nil
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// ListKey builds the cache key for a tenant-scoped entity list. Parent is
// optional and scopes the list to a parent record (e.g. contacts of one
// address).
func ListKey(entity string, tenantID uint, parent ...uint) string {
	key := fmt.Sprintf("list:%s:%d", entity, tenantID)
	for _, p := range parent {
		key = fmt.Sprintf("%s:%d", key, p)
	}
	return key
}

// GetList reads a cached list into dest. Returns ErrMiss when absent so
// callers fall through to the database.
func GetList(key string, dest interface{}) error {
	if client == nil {
		return ErrMiss
	}
	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// SetList stores a list result under key with the configured TTL. Failures
// are returned but callers treat the cache as best-effort.
func SetList(key string, value interface{}) error {
	if client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}

// Invalidate drops every cached list for the entity within the tenant,
// including parent-scoped variants. Called after every successful mutation.
func Invalidate(entity string, tenantID uint) error {
	if client == nil {
		return nil
	}
	pattern := fmt.Sprintf("list:%s:%d*", entity, tenantID)
	keys, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
