// Package cache stores remote job analyses in a quota-limited
// key-value store. Entries expire, the index of live keys is bounded
// and storage pressure is relieved by evicting least recently used
// entries. No method returns an error: failures are logged and degrade
// to a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/caesium-cloud/jobassist/internal/store"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/pkg/errors"
)

// ErrClosed is returned by Start on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is an analysis cache layered over a store.Store. A Cache is
// safe for concurrent use.
type Cache struct {
	store store.Store
	cfg   Config
	now   func() time.Time

	// indexMu serializes every read-modify-write of the index.
	indexMu sync.Mutex

	expiry atomic.Int64
	hits   atomic.Int64
	misses atomic.Int64

	mu      sync.Mutex
	revert  *time.Timer
	bulkGen uint64
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for entry timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over s. Zero fields of cfg take their defaults.
func New(s store.Store, cfg Config, opts ...Option) *Cache {
	c := &Cache{
		store: s,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.expiry.Store(int64(c.cfg.Expiry))

	return c
}

// Config returns the effective configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// Expiry returns the entry lifetime currently in force. It is shorter
// than the configured expiry while bulk mode is active.
func (c *Cache) Expiry() time.Duration {
	return time.Duration(c.expiry.Load())
}

// Get returns the cached analysis of j if a live entry exists and
// refreshes its access time. Expired entries are removed on sight.
func (c *Cache) Get(ctx context.Context, j job.Job) (json.RawMessage, bool) {
	key := Fingerprint(j)

	items, err := c.store.Get(ctx, key)
	if err != nil {
		log.Error("cache read failure", "key", key, "error", err)
		c.miss()
		return nil, false
	}

	data, ok := items[key]
	if !ok {
		c.miss()
		return nil, false
	}

	entry, err := decodeEntry(data)
	if err != nil {
		log.Warn("dropping unreadable cache entry", "key", key, "error", err)
		c.evict(ctx, "corrupt", key)
		c.miss()
		return nil, false
	}

	now := c.now()

	if entry.expired(now, c.Expiry()) {
		log.Debug("cache entry expired", "key", key, "created_at", entry.CreatedAt)
		c.evict(ctx, "expired", key)
		c.miss()
		return nil, false
	}

	entry.LastAccessedAt = now
	if data, err = json.Marshal(entry); err == nil {
		err = c.store.Set(ctx, map[string][]byte{key: data})
	}
	if err != nil {
		log.Debug("failed to refresh cache entry access time", "key", key, "error", err)
	}

	c.hit()

	return entry.Analysis, true
}

// Put caches analysis under the fingerprint of j. The analysis is
// stored compacted. Storage usage is probed first so cleanup tiers run
// before the write.
func (c *Cache) Put(ctx context.Context, j job.Job, analysis json.RawMessage) {
	c.CheckUsage(ctx)
	c.put(ctx, j, analysis, false)
}

func (c *Cache) put(ctx context.Context, j job.Job, analysis json.RawMessage, bulk bool) bool {
	key := Fingerprint(j)

	data, ok := c.encode(key, j, analysis, c.now(), bulk)
	if !ok {
		return false
	}

	if !c.write(ctx, map[string][]byte{key: data}) {
		return false
	}

	if err := c.addToIndex(ctx, key); err != nil {
		c.untrack(ctx, err, key)
		return false
	}

	log.Debug("cached job analysis", "key", key, "title", j.Title, "company", j.Company)

	return true
}

// PutBatch caches many analyses with one store write. It puts the
// cache into bulk mode first. When the batch does not fit the entries
// are written one at a time instead.
func (c *Cache) PutBatch(ctx context.Context, jobs []job.Job, analyses []json.RawMessage) {
	if len(jobs) != len(analyses) {
		log.Error(
			"cache batch length mismatch",
			"jobs", len(jobs),
			"analyses", len(analyses),
		)
		return
	}

	if len(jobs) == 0 {
		return
	}

	c.EnterBulkMode(ctx)

	var (
		now   = c.now()
		items = make(map[string][]byte, len(jobs))
		keys  = make([]string, 0, len(jobs))
	)

	for i, j := range jobs {
		key := Fingerprint(j)

		data, ok := c.encode(key, j, analyses[i], now, true)
		if !ok {
			continue
		}

		if _, dup := items[key]; !dup {
			keys = append(keys, key)
		}
		items[key] = data
	}

	if len(items) == 0 {
		return
	}

	err := c.store.Set(ctx, items)

	switch {
	case err == nil:
		if err = c.addToIndex(ctx, keys...); err != nil {
			c.untrack(ctx, err, keys...)
			return
		}
		log.Info("cached job analysis batch", "count", len(keys))

	case errors.Is(err, store.ErrQuotaExceeded):
		log.Warn("cache batch exceeds quota, writing sequentially", "count", len(keys))

		stored := 0
		for i, j := range jobs {
			if i%10 == 0 {
				c.CheckUsage(ctx)
			}
			if c.put(ctx, j, analyses[i], true) {
				stored++
			}
		}

		log.Info("cached job analysis batch sequentially", "stored", stored, "count", len(jobs))

	default:
		log.Error("cache batch write failure", "count", len(keys), "error", err)
		metrics.CacheWriteFailuresTotal.WithLabelValues("store").Inc()
	}
}

// Clear removes every indexed entry and the index itself, resets the
// hit and miss counters and returns the number of entries removed.
func (c *Cache) Clear(ctx context.Context) int {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	keys, err := c.loadIndex(ctx)
	if err != nil {
		log.Error("failed to load cache index", "error", err)
		return 0
	}

	if err = c.store.Remove(ctx, append(keys, IndexKey)...); err != nil {
		log.Error("failed to clear cache", "count", len(keys), "error", err)
		return 0
	}

	c.hits.Store(0)
	c.misses.Store(0)

	metrics.CacheEvictionsTotal.WithLabelValues("clear").Add(float64(len(keys)))
	metrics.CacheEntries.Set(0)

	log.Info("cache cleared", "count", len(keys))

	return len(keys)
}

func (c *Cache) encode(key string, j job.Job, analysis json.RawMessage, now time.Time, bulk bool) ([]byte, bool) {
	entry, err := newEntry(j, analysis, now, bulk)
	if err == nil {
		var data []byte
		if data, err = json.Marshal(entry); err == nil {
			return data, true
		}
	}

	log.Error("rejecting cache entry", "key", key, "error", err)
	metrics.CacheWriteFailuresTotal.WithLabelValues("encode").Inc()

	return nil, false
}

// write stores items. On a quota error it runs an emergency cleanup and
// retries exactly once.
func (c *Cache) write(ctx context.Context, items map[string][]byte) bool {
	err := c.store.Set(ctx, items)
	if err == nil {
		return true
	}

	if !errors.Is(err, store.ErrQuotaExceeded) {
		log.Error("cache write failure", "count", len(items), "error", err)
		metrics.CacheWriteFailuresTotal.WithLabelValues("store").Inc()
		return false
	}

	log.Warn("cache quota exceeded, running emergency cleanup", "count", len(items))
	c.cleanup(ctx, TierEmergency)

	if err = c.store.Set(ctx, items); err != nil {
		log.Error("cache write failed after emergency cleanup", "count", len(items), "error", err)
		metrics.CacheWriteFailuresTotal.WithLabelValues("quota").Inc()
		return false
	}

	return true
}

// untrack removes freshly written entries whose keys could not be
// indexed.
func (c *Cache) untrack(ctx context.Context, cause error, keys ...string) {
	log.Error("failed to index cache entries", "count", len(keys), "error", cause)
	metrics.CacheWriteFailuresTotal.WithLabelValues("index").Inc()

	if err := c.store.Remove(ctx, keys...); err != nil {
		log.Error("failed to remove unindexed cache entries", "count", len(keys), "error", err)
	}

	if errors.Is(cause, store.ErrQuotaExceeded) {
		c.cleanup(ctx, TierEmergency)
	}
}

// evict removes keys from the store and the index.
func (c *Cache) evict(ctx context.Context, reason string, keys ...string) int {
	if err := c.store.Remove(ctx, keys...); err != nil {
		log.Error("cache remove failure", "reason", reason, "count", len(keys), "error", err)
		return 0
	}

	metrics.CacheEvictionsTotal.WithLabelValues(reason).Add(float64(len(keys)))

	if err := c.removeFromIndex(ctx, keys...); err != nil {
		log.Warn("failed to update cache index", "reason", reason, "error", err)
	}

	return len(keys)
}

func (c *Cache) hit() {
	c.hits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
}
