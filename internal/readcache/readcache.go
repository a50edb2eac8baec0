// Package readcache is the read-through cache wrapping retrieve-by-id:
// a hit skips the database round trip entirely; update/delete invalidate
// the key synchronously before the orchestrator responds. Grounded on the
// teacher's internal/cache/redis.go (client construction, key prefixing)
// and internal/cache/invalidator.go (the invalidate-on-write shape).
package readcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("readcache: not found")

// Cache is the read-through cache for by-id retrieve. Disabled
// (Enabled() reports false) unless config.Cache.Enabled is set.
type Cache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	enabled bool
}

// Config configures the Redis connection and TTL.
type Config struct {
	Addr    string
	DB      int
	TTL     time.Duration
	Enabled bool
}

// New builds a Cache. When cfg.Enabled is false, the returned Cache is a
// safe no-op: Get always misses, Set/Invalidate are no-ops.
func New(cfg Config) *Cache {
	c := &Cache{ttl: cfg.TTL, prefix: "mongosvc:retrieve:", enabled: cfg.Enabled}
	if !cfg.Enabled {
		return c
	}
	c.client = redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	return c
}

// Enabled reports whether the cache is backed by a live client.
func (c *Cache) Enabled() bool {
	return c.enabled
}

func (c *Cache) key(database, collection, id string) string {
	return c.prefix + database + ":" + collection + ":" + id
}

// Get returns the cached document bytes for (database, collection, id),
// or ErrNotFound on a cache miss.
func (c *Cache) Get(ctx context.Context, database, collection, id string) ([]byte, error) {
	if !c.enabled {
		return nil, ErrNotFound
	}
	val, err := c.client.Get(ctx, c.key(database, collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set caches the document bytes for (database, collection, id) with the
// configured TTL.
func (c *Cache) Set(ctx context.Context, database, collection, id string, doc []byte) {
	if !c.enabled {
		return
	}
	_ = c.client.Set(ctx, c.key(database, collection, id), doc, c.ttl).Err()
}

// Invalidate deletes the cached entry for (database, collection, id),
// called synchronously by update/delete handlers before they return.
func (c *Cache) Invalidate(ctx context.Context, database, collection, id string) {
	if !c.enabled {
		return
	}
	_ = c.client.Del(ctx, c.key(database, collection, id)).Err()
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}
