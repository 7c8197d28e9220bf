package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetExperience returns a cached experience, or nil on a miss.
func (c *Cache) GetExperience(ctx context.Context, id string) (*domain.Experience, error) {
	val, err := c.client.Get(ctx, "exp:"+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var exp domain.Experience
	if err := json.Unmarshal(val, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (c *Cache) SetExperience(ctx context.Context, exp *domain.Experience, ttl time.Duration) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "exp:"+exp.ID.String(), data, ttl).Err()
}

// InvalidateExperience drops the cached copy after a seat count changes.
func (c *Cache) InvalidateExperience(ctx context.Context, id string) error {
	return c.client.Del(ctx, "exp:"+id).Err()
}
