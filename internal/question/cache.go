package question

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL  = 10 * time.Minute
	categoryCacheKey = "trivia:categories"
)

// Cache provides a Redis-backed copy of the category map. Categories are
// immutable through the API, so a TTL is the only invalidation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ CategoryCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context) (CategoryMap, error) {
	data, err := c.client.Get(ctx, categoryCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var m CategoryMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Cache) Set(ctx context.Context, m CategoryMap) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, categoryCacheKey, data, c.ttl).Err()
}
