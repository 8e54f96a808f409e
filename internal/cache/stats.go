package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/caesium-cloud/jobassist/pkg/bytes"
	"github.com/caesium-cloud/jobassist/pkg/log"
)

// EntrySummary describes one entry in Stats.
type EntrySummary struct {
	Key       string        `json:"key" yaml:"key"`
	JobTitle  string        `json:"jobTitle" yaml:"jobTitle"`
	Company   string        `json:"company" yaml:"company"`
	CreatedAt time.Time     `json:"createdAt" yaml:"createdAt"`
	Age       time.Duration `json:"ageNanos" yaml:"ageNanos"`
	AgeText   string        `json:"age" yaml:"age"`
}

// Stats is a read-only snapshot of the cache.
type Stats struct {
	TotalEntries      int           `json:"totalEntries" yaml:"totalEntries"`
	ValidEntries      int           `json:"validEntries" yaml:"validEntries"`
	ExpiredEntries    int           `json:"expiredEntries" yaml:"expiredEntries"`
	TotalSizeBytes    int64         `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	TotalSize         string        `json:"totalSize" yaml:"totalSize"`
	Hits              int64         `json:"hits" yaml:"hits"`
	Misses            int64         `json:"misses" yaml:"misses"`
	HitRate           float64       `json:"hitRate" yaml:"hitRate"`
	MaxEntries        int           `json:"maxEntries" yaml:"maxEntries"`
	ExpiryHours       float64       `json:"expiryHours" yaml:"expiryHours"`
	BulkMode          bool          `json:"bulkMode" yaml:"bulkMode"`
	StorageUsageBytes int64         `json:"storageUsageBytes" yaml:"storageUsageBytes"`
	StorageQuotaBytes int64         `json:"storageQuotaBytes" yaml:"storageQuotaBytes"`
	StorageUsage      string        `json:"storageUsage" yaml:"storageUsage"`
	StorageQuota      string        `json:"storageQuota" yaml:"storageQuota"`
	StorageUsageRatio float64       `json:"storageUsageRatio" yaml:"storageUsageRatio"`
	Oldest            *EntrySummary `json:"oldestEntry,omitempty" yaml:"oldestEntry,omitempty"`
	Newest            *EntrySummary `json:"newestEntry,omitempty" yaml:"newestEntry,omitempty"`
	Error             string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stats summarizes the cache. It never triggers cleanup. A store
// failure yields a zeroed snapshot with Error set.
func (c *Cache) Stats(ctx context.Context) Stats {
	fail := func(err error) Stats {
		log.Error("failed to collect cache stats", "error", err)
		return Stats{TotalSize: bytes.Format(0), Error: err.Error()}
	}

	c.indexMu.Lock()
	keys, err := c.loadIndex(ctx)
	c.indexMu.Unlock()

	if err != nil {
		return fail(err)
	}

	items, err := c.store.Get(ctx, keys...)
	if err != nil {
		return fail(err)
	}

	u, err := c.usage(ctx)
	if err != nil {
		return fail(err)
	}

	var (
		now    = c.now()
		expiry = c.Expiry()
		hits   = c.hits.Load()
		misses = c.misses.Load()
		s      = Stats{
			TotalEntries:      len(keys),
			Hits:              hits,
			Misses:            misses,
			MaxEntries:        c.cfg.MaxEntries,
			ExpiryHours:       expiry.Hours(),
			BulkMode:          c.BulkMode(),
			StorageUsageBytes: u.UsedBytes,
			StorageQuotaBytes: u.QuotaBytes,
			StorageUsage:      bytes.Format(u.UsedBytes),
			StorageQuota:      bytes.Format(u.QuotaBytes),
			StorageUsageRatio: u.Ratio,
		}
	)

	if hits+misses > 0 {
		s.HitRate = float64(hits) / float64(hits+misses)
	}

	for _, key := range keys {
		data, ok := items[key]
		if !ok {
			continue
		}

		entry, err := decodeEntry(data)
		if err != nil {
			s.ExpiredEntries++
			continue
		}

		if entry.expired(now, expiry) {
			s.ExpiredEntries++
		} else {
			s.ValidEntries++
		}

		s.TotalSizeBytes += int64(entry.SizeBytes)

		if s.Oldest == nil || entry.CreatedAt.Before(s.Oldest.CreatedAt) {
			s.Oldest = summarize(key, entry, now)
		}
		if s.Newest == nil || entry.CreatedAt.After(s.Newest.CreatedAt) {
			s.Newest = summarize(key, entry, now)
		}
	}

	s.TotalSize = bytes.Format(s.TotalSizeBytes)

	return s
}

func summarize(key string, e Entry, now time.Time) *EntrySummary {
	age := now.Sub(e.CreatedAt)
	return &EntrySummary{
		Key:       key,
		JobTitle:  e.JobTitle,
		Company:   e.Company,
		CreatedAt: e.CreatedAt,
		Age:       age,
		AgeText:   formatAge(age),
	}
}

// formatAge renders an age in whole minutes, hours or days.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	}
}
