package cache

import (
	"context"
	"encoding/json"

	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/pkg/errors"
)

// IndexKey is the reserved store key holding the JSON array of live
// entry keys.
const IndexKey = "cacheIndex"

// Keys returns the indexed entry keys, oldest insertion first.
func (c *Cache) Keys(ctx context.Context) []string {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	keys, err := c.loadIndex(ctx)
	if err != nil {
		log.Error("failed to load cache index", "error", err)
		return nil
	}

	return keys
}

// loadIndex must be called with indexMu held.
func (c *Cache) loadIndex(ctx context.Context) ([]string, error) {
	items, err := c.store.Get(ctx, IndexKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cache index")
	}

	data, ok := items[IndexKey]
	if !ok {
		return []string{}, nil
	}

	var keys []string
	if err = json.Unmarshal(data, &keys); err != nil {
		log.Warn("discarding unreadable cache index", "error", err)
		return []string{}, nil
	}

	return keys, nil
}

// saveIndex must be called with indexMu held.
func (c *Cache) saveIndex(ctx context.Context, keys []string) error {
	if keys == nil {
		keys = []string{}
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache index")
	}

	if err = c.store.Set(ctx, map[string][]byte{IndexKey: data}); err != nil {
		return errors.Wrap(err, "failed to write cache index")
	}

	metrics.CacheEntries.Set(float64(len(keys)))

	return nil
}

// addToIndex appends keys that are not yet indexed. When the index
// grows past MaxEntries the least recently used excess is evicted from
// both the store and the index in one pass. Victims that could not be
// removed stay indexed so the next eviction or sweep retries them.
func (c *Cache) addToIndex(ctx context.Context, keys ...string) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	index, err := c.loadIndex(ctx)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(index))
	for _, key := range index {
		present[key] = struct{}{}
	}

	changed := false
	for _, key := range keys {
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		index = append(index, key)
		changed = true
	}

	if !changed {
		return nil
	}

	if overflow := len(index) - c.cfg.MaxEntries; overflow > 0 {
		victims := c.orderByAccessTime(ctx, index)[:overflow]

		if err = c.store.Remove(ctx, victims...); err != nil {
			log.Warn("failed to evict cache entries over capacity", "count", overflow, "error", err)
		} else {
			metrics.CacheEvictionsTotal.WithLabelValues("capacity").Add(float64(overflow))
			log.Debug("evicted cache entries over capacity", "count", overflow)
			index = without(index, victims)
		}
	}

	return c.saveIndex(ctx, index)
}

func (c *Cache) removeFromIndex(ctx context.Context, keys ...string) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	index, err := c.loadIndex(ctx)
	if err != nil {
		return err
	}

	remaining := without(index, keys)
	if len(remaining) == len(index) {
		return nil
	}

	return c.saveIndex(ctx, remaining)
}

// without returns keys minus drop, preserving order.
func without(keys, drop []string) []string {
	if len(drop) == 0 {
		return keys
	}

	skip := make(map[string]struct{}, len(drop))
	for _, key := range drop {
		skip[key] = struct{}{}
	}

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := skip[key]; !ok {
			out = append(out, key)
		}
	}

	return out
}
