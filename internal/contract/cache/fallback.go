package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"petchain/internal/contract/models"
	"petchain/pkg/platform/circuit"
	"petchain/pkg/platform/sentinel"
)

const defaultProbeInterval = 5 * time.Second

// Backend is a verdict store usable as primary or fallback.
type Backend interface {
	Get(ctx context.Context, fingerprint string) (*models.CachedVerdict, error)
	Set(ctx context.Context, fingerprint string, verdict models.CachedVerdict) error
}

// FallbackCache serves from a shared primary (Redis) and switches to a local
// fallback while the primary is unavailable. While the breaker is open the
// primary is probed at most once per probe interval.
type FallbackCache struct {
	primary       Backend
	fallback      Backend
	breaker       *circuit.Breaker
	logger        *slog.Logger
	probeInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

// FallbackOption configures a FallbackCache.
type FallbackOption func(*FallbackCache)

func WithBreaker(b *circuit.Breaker) FallbackOption {
	return func(c *FallbackCache) { c.breaker = b }
}

func WithProbeInterval(d time.Duration) FallbackOption {
	return func(c *FallbackCache) { c.probeInterval = d }
}

func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(c *FallbackCache) { c.logger = logger }
}

func NewFallbackCache(primary, fallback Backend, opts ...FallbackOption) *FallbackCache {
	c := &FallbackCache{
		primary:       primary,
		fallback:      fallback,
		breaker:       circuit.New("verdict-cache"),
		logger:        slog.Default(),
		probeInterval: defaultProbeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FallbackCache) Get(ctx context.Context, fingerprint string) (*models.CachedVerdict, error) {
	if !c.usePrimary() {
		return c.fallback.Get(ctx, fingerprint)
	}

	v, err := c.primary.Get(ctx, fingerprint)
	if errors.Is(err, sentinel.ErrUnavailable) {
		c.failure(ctx, err)
		return c.fallback.Get(ctx, fingerprint)
	}
	if !c.success(ctx) {
		return c.fallback.Get(ctx, fingerprint)
	}
	return v, err
}

func (c *FallbackCache) Set(ctx context.Context, fingerprint string, verdict models.CachedVerdict) error {
	// the fallback is always kept warm so an outage starts with a useful cache
	if err := c.fallback.Set(ctx, fingerprint, verdict); err != nil {
		return err
	}
	if !c.usePrimary() {
		return nil
	}

	if err := c.primary.Set(ctx, fingerprint, verdict); err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			c.failure(ctx, err)
			return nil
		}
		return err
	}
	c.success(ctx)
	return nil
}

// usePrimary is true while closed, and once per probe interval while open.
func (c *FallbackCache) usePrimary() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastProbe) < c.probeInterval {
		return false
	}
	c.lastProbe = now
	return true
}

func (c *FallbackCache) failure(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.mu.Lock()
		c.lastProbe = c.now()
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "verdict cache circuit opened, serving from fallback",
			"breaker", c.breaker.Name(),
			"error", err,
		)
	}
}

func (c *FallbackCache) success(ctx context.Context) bool {
	usePrimary, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "verdict cache circuit closed", "breaker", c.breaker.Name())
	}
	return usePrimary
}
