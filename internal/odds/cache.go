package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/wargame/internal/game/casualty"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// Cache stores finished estimates by key.
type Cache interface {
	Get(ctx context.Context, key string) (AggregateResult, bool, error)
	Set(ctx context.Context, key string, res AggregateResult) error
}

// Fingerprint returns a stable key for a matchup. Two matchups with the same
// unit types, damage, territory and loss settings share a fingerprint
// regardless of unit IDs or slice order.
func Fingerprint(m Matchup) string {
	var b strings.Builder
	writeGroup(&b, "a", m.Attacker)
	writeGroup(&b, "d", m.Defender)
	writeGroup(&b, "b", m.Bombarding)

	effects := make([]string, 0, len(m.Territory.Effects))
	for _, e := range m.Territory.Effects {
		effects = append(effects, e.Name)
	}
	sort.Strings(effects)
	b.WriteString("t=")
	b.WriteString(strconv.FormatBool(m.Territory.Water))
	b.WriteString(":")
	b.WriteString(strings.Join(effects, ","))

	fmt.Fprintf(&b, "|ool=%s/%s|keep=%t|amph=%t",
		strings.Join(m.AttackerOrder, ","), strings.Join(m.DefenderOrder, ","),
		m.KeepOneAttackingLandUnit, m.Amphibious)

	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

func writeGroup(b *strings.Builder, tag string, g core.UnitGroup) {
	counts := make(map[string]int)
	for _, u := range g {
		counts[u.Type.Name+"/"+strconv.Itoa(u.Hits)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(tag)
	b.WriteString("=")
	for _, k := range keys {
		fmt.Fprintf(b, "%s*%d;", k, counts[k])
	}
	b.WriteString("|")
}

type memoryEntry struct {
	result    AggregateResult
	createdAt time.Time
}

// MemoryCache is an in-process cache whose entries expire after a TTL.
type MemoryCache struct {
	entries    map[string]*memoryEntry
	ttl        time.Duration
	maxEntries int
	mu         sync.RWMutex
}

// NewMemoryCache creates a cache. A non-positive maxEntries defaults to
// 1000.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get implements Cache.
func (mc *MemoryCache) Get(_ context.Context, key string) (AggregateResult, bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	entry, exists := mc.entries[key]
	if !exists || mc.expired(entry, time.Now()) {
		return AggregateResult{}, false, nil
	}
	return entry.result, true, nil
}

// Set implements Cache.
func (mc *MemoryCache) Set(_ context.Context, key string, res AggregateResult) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[key] = &memoryEntry{result: res, createdAt: time.Now()}
	if len(mc.entries) > mc.maxEntries {
		mc.cleanupLocked()
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}

func (mc *MemoryCache) expired(e *memoryEntry, now time.Time) bool {
	return mc.ttl > 0 && now.Sub(e.createdAt) > mc.ttl
}

// cleanupLocked drops expired entries, then the oldest ones until the cache
// fits. Must be called with mu held.
func (mc *MemoryCache) cleanupLocked() {
	now := time.Now()
	for key, entry := range mc.entries {
		if mc.expired(entry, now) {
			delete(mc.entries, key)
		}
	}
	for len(mc.entries) > mc.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range mc.entries {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey, oldest = key, entry.createdAt
			}
		}
		delete(mc.entries, oldestKey)
	}
}

// RedisCache shares estimates between processes through Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at redisURL.
func NewRedisCache(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheFromClient(rdb, prefix, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "odds"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (rc *RedisCache) key(k string) string { return rc.prefix + ":" + k }

// Get implements Cache.
func (rc *RedisCache) Get(ctx context.Context, key string) (AggregateResult, bool, error) {
	data, err := rc.rdb.Get(ctx, rc.key(key)).Bytes()
	if err == redis.Nil {
		return AggregateResult{}, false, nil
	}
	if err != nil {
		return AggregateResult{}, false, fmt.Errorf("get estimate: %w", err)
	}
	var res AggregateResult
	if err := json.Unmarshal(data, &res); err != nil {
		return AggregateResult{}, false, fmt.Errorf("decode estimate: %w", err)
	}
	return res, true, nil
}

// Set implements Cache.
func (rc *RedisCache) Set(ctx context.Context, key string, res AggregateResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode estimate: %w", err)
	}
	return rc.rdb.Set(ctx, rc.key(key), data, rc.ttl).Err()
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.rdb.Close()
}

// CachedEstimator serves repeated matchups from a cache. Partial results are
// never stored. Cache failures are logged and fall through to Inner.
//
// Stored results keep survivor counts but not the remaining unit groups, which
// do not survive encoding. On a hit the groups are rebuilt from the
// requested matchup's own units, taking the units that die last.
type CachedEstimator struct {
	Inner Estimator
	Cache Cache
	// Variant separates results of differently configured estimators, such
	// as Monte-Carlo runs with different run counts.
	Variant string
	Logger  zerolog.Logger
}

// Name implements Estimator.
func (c CachedEstimator) Name() string { return c.Inner.Name() }

// Key returns the cache key of a matchup.
func (c CachedEstimator) Key(m Matchup) string {
	if c.Variant == "" {
		return c.Inner.Name() + ":" + Fingerprint(m)
	}
	return c.Inner.Name() + ":" + c.Variant + ":" + Fingerprint(m)
}

// Estimate implements Estimator.
func (c CachedEstimator) Estimate(ctx context.Context, m Matchup) (AggregateResult, error) {
	key := c.Key(m)
	res, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("Estimate cache lookup failed")
	}
	if ok {
		res.Cached = true
		restore(&res, m)
		return res, nil
	}

	res, err = c.Inner.Estimate(ctx, m)
	if err != nil {
		return res, err
	}
	if !res.Partial && res.Valid() {
		if err := c.Cache.Set(ctx, key, res); err != nil {
			c.Logger.Warn().Err(err).Str("key", key).Msg("Failed to cache estimate")
		}
	}
	return res, nil
}

// restore rebuilds the remaining groups of a cached single-pass result.
func restore(res *AggregateResult, m Matchup) {
	if res.AttackerSurvivors == nil && res.DefenderSurvivors == nil {
		return
	}
	res.AttackerRemaining = survivors(m.Attacker, res.AttackerSurvivors, m.AttackerLosses())
	res.DefenderRemaining = survivors(m.Defender, res.DefenderSurvivors, m.DefenderLosses())
}

// survivors picks counts[type] units of each type from g, last to die first.
func survivors(g core.UnitGroup, counts map[string]int, losses casualty.Ordered) core.UnitGroup {
	need := make(map[string]int, len(counts))
	for name, n := range counts {
		need[name] = n
	}
	seq := losses.Sequence(g)
	var out core.UnitGroup
	for i := len(seq) - 1; i >= 0; i-- {
		if u := seq[i]; need[u.Type.Name] > 0 {
			need[u.Type.Name]--
			out = append(out, u)
		}
	}
	return out.SortedByID()
}
