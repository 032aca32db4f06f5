package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"petchain/internal/contract/models"
	"petchain/pkg/platform/sentinel"
)

// RedisCache shares verdicts between verifier replicas.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps a go-redis client. A zero ttl keeps entries forever.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*models.CachedVerdict, error) {
	data, err := c.client.Get(ctx, key(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached verdict: %w: %w", sentinel.ErrUnavailable, err)
	}

	var v models.CachedVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode cached verdict: %w", err)
	}
	return &v, nil
}

func (c *RedisCache) Set(ctx context.Context, fingerprint string, verdict models.CachedVerdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("encode cached verdict: %w", err)
	}
	if err := c.client.Set(ctx, key(fingerprint), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached verdict: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
