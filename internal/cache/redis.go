package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// statsTTL bounds staleness of the swipe-stat counters; the DB is the
// fallback on every miss.
const statsTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForLikesReceived generates the Redis key for likes received by a dog.
func (c *RedisCache) KeyForLikesReceived(dogID uint64) string {
	return fmt.Sprintf("likes:received:%d", dogID)
}

// KeyForLikesGiven generates the Redis key for likes given by a dog.
func (c *RedisCache) KeyForLikesGiven(dogID uint64) string {
	return fmt.Sprintf("likes:given:%d", dogID)
}

// GetCount reads a cached counter. Returns (0, false, nil) on cache miss.
// Refreshes TTL on hit since the dog is evidently active.
func (c *RedisCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	_ = c.Client.Expire(ctx, key, statsTTL).Err()
	return n, true, nil
}

// SetCount stores a counter with the stats TTL.
func (c *RedisCache) SetCount(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, strconv.FormatInt(n, 10), statsTTL).Err()
}

// BumpCount increments an already-cached counter and refreshes its TTL.
// A missing key stays missing so the next read falls back to the DB.
func (c *RedisCache) BumpCount(ctx context.Context, key string) {
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}
	_, _ = c.Client.Incr(ctx, key).Result()
	_ = c.Client.Expire(ctx, key, statsTTL).Err()
}
