package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"QrestAPI/internal/db"
	"QrestAPI/internal/logger"
)

// Alias maps are derived purely from the immutable registry, so caching
// them is safe: a cached map and a rebuilt one are byte-for-byte equal.
// Query results are never cached here.

var (
	aliasCacheMu  sync.RWMutex
	aliasCache    = map[string]*AliasMap{}
	aliasCacheTTL = 2 * time.Hour
	useRedisCache bool
)

// ConfigureAliasCache enables the Redis tier and sets its TTL.
// The in-process tier is always on.
func ConfigureAliasCache(redisEnabled bool, ttlSec int64) {
	aliasCacheMu.Lock()
	defer aliasCacheMu.Unlock()
	useRedisCache = redisEnabled
	if ttlSec > 0 {
		aliasCacheTTL = time.Duration(ttlSec) * time.Second
	}
}

// GetAliasMap returns the resource's alias map, consulting the in-process
// cache, then Redis (when enabled), then building from the registry.
func (m *Resource) GetAliasMap(ctx context.Context) *AliasMap {
	aliasCacheMu.RLock()
	cached, ok := aliasCache[m.Name]
	redisOn := useRedisCache
	ttl := aliasCacheTTL
	aliasCacheMu.RUnlock()
	if ok {
		return cached
	}

	redisKey := "aliasmap:" + m.Name
	if redisOn && db.RDB != nil {
		if raw, err := db.RDB.Get(ctx, redisKey).Result(); err == nil {
			var am AliasMap
			if err := json.Unmarshal([]byte(raw), &am); err == nil {
				storeAliasMap(m.Name, &am)
				return &am
			}
			logger.Warn("alias_cache_corrupt", map[string]any{"resource": m.Name})
		}
	}

	am := BuildAliasMap(m)
	storeAliasMap(m.Name, am)

	if redisOn && db.RDB != nil {
		if data, err := json.Marshal(am); err == nil {
			if err := db.RDB.Set(ctx, redisKey, data, ttl).Err(); err != nil {
				logger.Warn("alias_cache_store_failed", map[string]any{
					"resource": m.Name,
					"error":    err.Error(),
				})
			}
		}
	}
	return am
}

func storeAliasMap(name string, am *AliasMap) {
	aliasCacheMu.Lock()
	aliasCache[name] = am
	aliasCacheMu.Unlock()
}

// FlushAliasMaps drops every cached alias map, in-process and in Redis.
// Responses must be identical before and after a flush.
func FlushAliasMaps(ctx context.Context) error {
	aliasCacheMu.Lock()
	aliasCache = map[string]*AliasMap{}
	redisOn := useRedisCache
	aliasCacheMu.Unlock()

	if !redisOn || db.RDB == nil {
		return nil
	}
	iter := db.RDB.Scan(ctx, 0, "aliasmap:*", 1000).Iterator()
	for iter.Next(ctx) {
		if err := db.RDB.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	return nil
}
