package cache

import (
	"context"
	"sort"
	"time"

	"github.com/caesium-cloud/jobassist/pkg/log"
)

type accessRecord struct {
	key      string
	accessed time.Time
	created  time.Time
}

// orderByAccessTime returns keys least recently used first, ordered by
// last access and then creation time. Keys without a readable entry
// sort first. Ties keep index order. If the store cannot be read the
// index order is returned unchanged.
func (c *Cache) orderByAccessTime(ctx context.Context, keys []string) []string {
	items, err := c.store.Get(ctx, keys...)
	if err != nil {
		log.Warn("failed to read cache entries for lru ordering", "count", len(keys), "error", err)
		return append([]string(nil), keys...)
	}

	records := make([]accessRecord, len(keys))
	for i, key := range keys {
		records[i].key = key

		data, ok := items[key]
		if !ok {
			continue
		}

		if entry, err := decodeEntry(data); err == nil {
			records[i].accessed = entry.accessTime()
			records[i].created = entry.CreatedAt
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.accessed.Equal(b.accessed) {
			return a.accessed.Before(b.accessed)
		}
		return a.created.Before(b.created)
	})

	ordered := make([]string, len(records))
	for i, r := range records {
		ordered[i] = r.key
	}

	return ordered
}
