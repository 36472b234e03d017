// Package cache is a two-layer lookup cache for slow external fetches:
// invite-code resolutions and the TLD list. L1 is in-process (ristretto);
// L2 is redis and optional, so cached lookups can survive a restart when
// redis is configured but everything still works without it.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"discord-moderation-bot/internal/redis"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	l1           *ristretto.Cache
	l2           *redis.Client
	singleflight singleflight.Group
	defaultTTL   time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Config for cache initialization; zero values get sensible defaults.
type Config struct {
	L1MaxCost     int64
	L1NumCounters int64
	DefaultTTL    time.Duration
}

// New creates the cache. l2 may be nil.
func New(l2 *redis.Client, cfg Config) (*Cache, error) {
	if cfg.L1MaxCost == 0 {
		cfg.L1MaxCost = 10 << 20 // 10MB
	}
	if cfg.L1NumCounters == 0 {
		cfg.L1NumCounters = 10000
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.L1NumCounters,
		MaxCost:     cfg.L1MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}

	return &Cache{l1: l1, l2: l2, defaultTTL: cfg.DefaultTTL}, nil
}

// Get returns the cached value for key, falling back L1 -> L2 -> fetch.
// Concurrent misses on one key run fetch once (singleflight), so a burst of
// identical invite links resolves with a single platform call.
func (c *Cache) Get(ctx context.Context, key string, fetch func() (interface{}, error)) (interface{}, error) {
	if val, found := c.l1.Get(key); found {
		c.hits.Add(1)
		return val, nil
	}
	c.misses.Add(1)

	if c.l2 != nil {
		if val, err := c.l2.Get(key); err == nil && val != "" {
			c.l1.SetWithTTL(key, val, 1, c.defaultTTL)
			return val, nil
		}
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		return fetch()
	})
	if err != nil {
		return nil, err
	}

	c.Set(key, val, c.defaultTTL)
	return val, nil
}

// Set stores a value in both layers.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.l1.SetWithTTL(key, value, 1, ttl)
	if c.l2 != nil {
		c.l2.Set(key, value, ttl)
	}
}

// Delete removes a key from both layers.
func (c *Cache) Delete(key string) {
	c.l1.Del(key)
	if c.l2 != nil {
		c.l2.Del(key)
	}
}

// HitRate reports the L1 hit rate for diagnostics.
func (c *Cache) HitRate() float64 {
	total := c.hits.Load() + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(total)
}

// Close shuts down the in-process layer. The redis client is owned by the
// caller.
func (c *Cache) Close() {
	c.l1.Close()
}
