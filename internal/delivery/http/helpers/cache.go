package helpers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"eventcore/internal/domain"
)

// Default lifetimes for cached reads.
const (
	DefaultCacheTTL = 30 * time.Minute
	StatsCacheTTL   = 5 * time.Minute
)

// ResponseCache stores JSON encodings of read results in a domain.CacheStore.
// A nil *ResponseCache (or one without a store) never hits and never stores.
// Store failures are logged and otherwise ignored so a broken cache only
// costs a trip to the service.
type ResponseCache struct {
	Store    domain.CacheStore
	Logger   *slog.Logger
	TTL      time.Duration
	StatsTTL time.Duration
}

// NewResponseCache returns a cache over store, or nil when store is nil.
// Non-positive lifetimes fall back to DefaultCacheTTL and StatsCacheTTL.
func NewResponseCache(store domain.CacheStore, logger *slog.Logger, ttl, statsTTL time.Duration) *ResponseCache {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if statsTTL <= 0 {
		statsTTL = StatsCacheTTL
	}
	return &ResponseCache{Store: store, Logger: logger, TTL: ttl, StatsTTL: statsTTL}
}

// Fetch decodes the entry at key into dest and reports whether it was found.
func (c *ResponseCache) Fetch(ctx context.Context, key string, dest any) bool {
	if c == nil || c.Store == nil {
		return false
	}
	raw, ok, err := c.Store.Get(ctx, key)
	if err != nil {
		c.Logger.WarnContext(ctx, "cache read failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.Logger.WarnContext(ctx, "cache entry undecodable", "key", key, "err", err)
		return false
	}
	return true
}

// Put stores value at key for the default lifetime.
func (c *ResponseCache) Put(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	c.put(ctx, key, value, c.TTL)
}

// PutStats stores value at key for the statistics lifetime.
func (c *ResponseCache) PutStats(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	c.put(ctx, key, value, c.StatsTTL)
}

func (c *ResponseCache) put(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.Store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.Logger.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.Store.Set(ctx, key, raw, ttl); err != nil {
		c.Logger.WarnContext(ctx, "cache write failed", "key", key, "err", err)
	}
}

// Invalidate drops keys from the cache. It runs after a committed write, so
// a client disconnect must not cancel it and leave stale entries behind.
func (c *ResponseCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.Store == nil || len(keys) == 0 {
		return
	}
	if err := c.Store.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		c.Logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "err", err)
	}
}
