package content

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"

	"github.com/chatsweep/chatsweep/policy"
)

type RedisCache struct {
	data *cache.Cache
	ttl  time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisCache{data: data, ttl: ttl}, nil
}

func redisContentKey(fingerprint string) string {
	return "content/" + fingerprint
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (policy.Category, error) {
	var val string
	err := c.data.Get(ctx, redisContentKey(fingerprint), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return policy.None, nil
	}
	if err != nil {
		return policy.None, err
	}
	return policy.Category(val), nil
}

func (c *RedisCache) Set(ctx context.Context, fingerprint string, cat policy.Category) error {
	return c.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisContentKey(fingerprint),
		Value: string(cat),
		TTL:   c.ttl,
	})
}

func (c *RedisCache) Purge(ctx context.Context, fingerprint string) error {
	return c.data.Delete(ctx, redisContentKey(fingerprint))
}
