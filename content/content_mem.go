package content

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chatsweep/chatsweep/policy"
)

type MemCache struct {
	data *expirable.LRU[string, string]
}

var _ Cache = (*MemCache)(nil)

func NewMemCache(capacity int, ttl time.Duration) *MemCache {
	return &MemCache{
		data: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (c *MemCache) Get(ctx context.Context, fingerprint string) (policy.Category, error) {
	v, ok := c.data.Get(fingerprint)
	if !ok {
		return policy.None, nil
	}
	return policy.Category(v), nil
}

func (c *MemCache) Set(ctx context.Context, fingerprint string, cat policy.Category) error {
	c.data.Add(fingerprint, string(cat))
	return nil
}

func (c *MemCache) Purge(ctx context.Context, fingerprint string) error {
	c.data.Remove(fingerprint)
	return nil
}
