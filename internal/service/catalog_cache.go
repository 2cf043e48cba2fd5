package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tutorinminutes-backend/internal/catalog"

	"github.com/redis/go-redis/v9"
)

const catalogCacheKey = "catalog:tutors"

// CatalogCache keeps the validated tutor list in Redis as one JSON document.
type CatalogCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCatalogCache(redisClient *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{redisClient: redisClient, ttl: ttl}
}

// Get returns the cached list and whether it was present.
func (c *CatalogCache) Get(ctx context.Context) ([]catalog.Tutor, bool, error) {
	raw, err := c.redisClient.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read catalog cache: %w", err)
	}

	var tutors []catalog.Tutor
	if err := json.Unmarshal(raw, &tutors); err != nil {
		return nil, false, fmt.Errorf("decode catalog cache: %w", err)
	}
	return tutors, true, nil
}

func (c *CatalogCache) Set(ctx context.Context, tutors []catalog.Tutor) error {
	raw, err := json.Marshal(tutors)
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	if err := c.redisClient.Set(ctx, catalogCacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write catalog cache: %w", err)
	}
	return nil
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.redisClient.Del(ctx, catalogCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}
