// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
)

// RedisCache is a Redis-backed Cacher for multi-instance deployments.
//
// Values are stored as JSON. Get returns the stored bytes as []byte; the
// caller unmarshals into its own type. []byte values are stored as-is so
// pre-marshaled API responses avoid a double encode.
//
// Redis errors degrade to cache misses so an unavailable Redis never
// fails a request.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	statsMu sync.Mutex
	stats   Stats
}

// opTimeout bounds individual Redis operations since Cacher methods carry
// no context of their own.
const opTimeout = 2 * time.Second

// NewRedis creates a Redis-backed cache. The prefix namespaces all keys
// so multiple caches can share one Redis database.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix + ":",
	}
}

// Get retrieves the stored JSON bytes for key.
func (c *RedisCache) Get(key string) (interface{}, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn().Err(err).Str("key", key).Msg("redis get failed")
		}
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return data, true
}

// Set stores a value with the default TTL.
func (c *RedisCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	data, ok := value.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("redis set: marshal failed")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Delete removes a key.
func (c *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
	c.recordEvictions(1)
}

// DeletePrefix removes all keys starting with prefix using SCAN so the
// server is never blocked by a KEYS call.
func (c *RedisCache) DeletePrefix(prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	evictions := int64(0)
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logging.Warn().Err(err).Str("key", iter.Val()).Msg("redis delete failed")
			continue
		}
		evictions++
	}
	if err := iter.Err(); err != nil {
		logging.Warn().Err(err).Str("prefix", prefix).Msg("redis scan failed")
	}
	c.recordEvictions(evictions)
}

// Clear removes all keys under this cache's namespace.
func (c *RedisCache) Clear() {
	c.DeletePrefix("")
}

// GetStats returns a snapshot of the client-side counters. Counters track
// only this process's traffic, not the shared Redis contents.
func (c *RedisCache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the hit rate as a percentage.
func (c *RedisCache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (c *RedisCache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *RedisCache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

func (c *RedisCache) recordEvictions(n int64) {
	c.statsMu.Lock()
	c.stats.Evictions += n
	c.statsMu.Unlock()
}

var _ Cacher = (*RedisCache)(nil)
