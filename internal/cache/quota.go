package cache

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/pkg/errors"
)

// Tier is a cleanup severity.
type Tier string

const (
	// TierProactive sweeps expired entries, then trims the least
	// recently used remainder.
	TierProactive Tier = "proactive"
	// TierAggressive trims the least recently used entries.
	TierAggressive Tier = "aggressive"
	// TierEmergency trims half of the entries.
	TierEmergency Tier = "emergency"
)

// ParseTier converts a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierProactive, TierAggressive, TierEmergency:
		return t, nil
	default:
		return "", fmt.Errorf("unknown cleanup tier %q", s)
	}
}

// Usage is a snapshot of store consumption.
type Usage struct {
	UsedBytes  int64   `json:"usedBytes" yaml:"usedBytes"`
	QuotaBytes int64   `json:"quotaBytes" yaml:"quotaBytes"`
	Ratio      float64 `json:"ratio" yaml:"ratio"`
}

// usage probes the store without triggering cleanup.
func (c *Cache) usage(ctx context.Context) (Usage, error) {
	used, err := c.store.BytesInUse(ctx)
	if err != nil {
		return Usage{}, errors.Wrap(err, "failed to read store usage")
	}

	quota := c.store.QuotaBytes()
	if quota <= 0 {
		quota = c.cfg.FallbackQuotaBytes
	}

	return Usage{
		UsedBytes:  used,
		QuotaBytes: quota,
		Ratio:      float64(used) / float64(quota),
	}, nil
}

// Usage probes the store without triggering cleanup.
func (c *Cache) Usage(ctx context.Context) Usage {
	u, err := c.usage(ctx)
	if err != nil {
		log.Warn("storage usage probe failure", "error", err)
	}
	return u
}

// CheckUsage probes the store and runs at most one cleanup tier, the
// highest whose threshold the usage ratio meets. It returns the usage
// observed before cleanup.
func (c *Cache) CheckUsage(ctx context.Context) Usage {
	u, err := c.usage(ctx)
	if err != nil {
		log.Warn("storage usage probe failure", "error", err)
		return Usage{}
	}

	metrics.CacheStorageUsageRatio.Set(u.Ratio)

	th := c.cfg.Thresholds

	var tier Tier
	switch {
	case u.Ratio >= th.Emergency:
		tier = TierEmergency
	case u.Ratio >= th.Critical:
		tier = TierAggressive
	case u.Ratio >= th.Proactive:
		tier = TierProactive
	default:
		return u
	}

	log.Warn(
		"storage usage above threshold",
		"tier", tier,
		"ratio", u.Ratio,
		"used_bytes", u.UsedBytes,
		"quota_bytes", u.QuotaBytes,
	)

	c.cleanup(ctx, tier)

	return u
}

// ForceCleanup runs tier regardless of usage and returns the number of
// entries removed.
func (c *Cache) ForceCleanup(ctx context.Context, tier Tier) int {
	log.Info("forced cache cleanup", "tier", tier)
	return c.cleanup(ctx, tier)
}

func (c *Cache) fraction(tier Tier) (float64, bool) {
	switch tier {
	case TierProactive:
		return c.cfg.Fractions.Proactive, true
	case TierAggressive:
		return c.cfg.Fractions.Aggressive, true
	case TierEmergency:
		return c.cfg.Fractions.Emergency, true
	default:
		return 0, false
	}
}

// cleanup removes ceil(live*fraction) entries from the least recently
// used end of the index. The proactive tier sweeps expired entries
// first and trims what remains.
func (c *Cache) cleanup(ctx context.Context, tier Tier) int {
	fraction, ok := c.fraction(tier)
	if !ok {
		log.Error("unknown cleanup tier", "tier", tier)
		return 0
	}

	start := time.Now()
	defer func() {
		metrics.CacheCleanupDurationSeconds.
			WithLabelValues(string(tier)).
			Observe(time.Since(start).Seconds())
	}()

	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	removed := 0

	if tier == TierProactive {
		n, err := c.removeExpiredLocked(ctx)
		if err != nil {
			log.Error("cache expiry sweep failure", "error", err)
		}
		removed += n
	}

	keys, err := c.loadIndex(ctx)
	if err != nil {
		log.Error("failed to load cache index", "tier", tier, "error", err)
		return removed
	}

	n := int(math.Ceil(float64(len(keys)) * fraction))
	if n > len(keys) {
		n = len(keys)
	}
	if n == 0 {
		return removed
	}

	victims := c.orderByAccessTime(ctx, keys)[:n]

	if err = c.store.Remove(ctx, victims...); err != nil {
		log.Error("cache cleanup failure", "tier", tier, "count", n, "error", err)
		return removed
	}

	metrics.CacheEvictionsTotal.WithLabelValues(string(tier)).Add(float64(n))
	removed += n

	remaining := without(keys, victims)
	if err = c.saveIndex(ctx, remaining); err != nil {
		log.Warn("failed to update cache index", "tier", tier, "error", err)
	}

	log.Info(
		"cache cleanup complete",
		"tier", tier,
		"removed", removed,
		"remaining", len(remaining),
	)

	return removed
}

// removeExpired sweeps expired entries and returns how many it removed.
func (c *Cache) removeExpired(ctx context.Context) int {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	n, err := c.removeExpiredLocked(ctx)
	if err != nil {
		log.Error("cache expiry sweep failure", "error", err)
	}
	return n
}

// removeExpiredLocked removes expired and unreadable entries and drops
// index keys whose entry is missing. indexMu must be held.
func (c *Cache) removeExpiredLocked(ctx context.Context) (int, error) {
	keys, err := c.loadIndex(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	items, err := c.store.Get(ctx, keys...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read cache entries")
	}

	var (
		now      = c.now()
		expiry   = c.Expiry()
		expired  []string
		dangling []string
	)

	for _, key := range keys {
		data, ok := items[key]
		if !ok {
			dangling = append(dangling, key)
			continue
		}

		entry, err := decodeEntry(data)
		if err != nil || entry.expired(now, expiry) {
			expired = append(expired, key)
		}
	}

	if len(expired) == 0 && len(dangling) == 0 {
		return 0, nil
	}

	if len(expired) > 0 {
		if err = c.store.Remove(ctx, expired...); err != nil {
			return 0, errors.Wrap(err, "failed to remove expired cache entries")
		}
		metrics.CacheEvictionsTotal.WithLabelValues("expired").Add(float64(len(expired)))
	}

	if len(dangling) > 0 {
		log.Debug("dropping dangling cache index keys", "count", len(dangling))
	}

	if err = c.saveIndex(ctx, without(without(keys, expired), dangling)); err != nil {
		return len(expired), err
	}

	if len(expired) > 0 {
		log.Info("removed expired cache entries", "count", len(expired))
	}

	return len(expired), nil
}
