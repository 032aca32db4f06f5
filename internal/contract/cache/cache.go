// Package cache stores verdicts by transaction fingerprint.
//
// Verification is pure, so a verdict is valid for as long as the rule set
// is unchanged. Keys embed the rule set version to make a rule change a
// cache miss rather than a stale hit.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"petchain/internal/contract/models"
	"petchain/pkg/platform/sentinel"
)

// RuleSetVersion must be bumped whenever a rule or reason changes.
const RuleSetVersion = "v1"

func key(fingerprint string) string {
	return "petchain:verdict:" + RuleSetVersion + ":" + fingerprint
}

// InMemoryCache is a process-local verdict cache with TTL. Expired entries
// are swept by go-cache's janitor.
type InMemoryCache struct {
	items *gocache.Cache
}

// NewInMemoryCache creates a cache whose entries expire after ttl. A zero
// ttl keeps entries forever.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl <= 0 {
		return &InMemoryCache{items: gocache.New(gocache.NoExpiration, 0)}
	}
	return &InMemoryCache{items: gocache.New(ttl, cleanupInterval(ttl))}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

func (c *InMemoryCache) Get(_ context.Context, fingerprint string) (*models.CachedVerdict, error) {
	obj, found := c.items.Get(key(fingerprint))
	if !found {
		return nil, sentinel.ErrNotFound
	}
	v, ok := obj.(models.CachedVerdict)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (c *InMemoryCache) Set(_ context.Context, fingerprint string, verdict models.CachedVerdict) error {
	c.items.Set(key(fingerprint), verdict, gocache.DefaultExpiration)
	return nil
}

// Len returns the number of stored entries. Expired entries not yet swept
// are included.
func (c *InMemoryCache) Len() int {
	return c.items.ItemCount()
}
