package cache

import (
	"context"
	"time"

	"github.com/caesium-cloud/jobassist/pkg/log"
)

// EnterBulkMode prepares for a burst of writes. When usage is at or
// above the bulk threshold an aggressive cleanup runs first. The expiry
// then drops to the bulk expiry until BulkRevertDelay has passed since
// the most recent call.
func (c *Cache) EnterBulkMode(ctx context.Context) {
	u, err := c.usage(ctx)
	switch {
	case err != nil:
		log.Warn("storage usage probe failure", "error", err)
	case u.Ratio >= c.cfg.Thresholds.Bulk:
		log.Info("cleaning cache before bulk writes", "ratio", u.Ratio)
		c.cleanup(ctx, TierAggressive)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.expiry.Store(int64(c.cfg.BulkExpiry))

	if c.revert != nil {
		c.revert.Stop()
	}

	c.bulkGen++
	gen := c.bulkGen
	c.revert = time.AfterFunc(c.cfg.BulkRevertDelay, func() {
		c.exitBulkMode(gen)
	})

	log.Info(
		"cache bulk mode enabled",
		"expiry", c.cfg.BulkExpiry,
		"revert_after", c.cfg.BulkRevertDelay,
	)
}

// BulkMode reports whether bulk mode is active.
func (c *Cache) BulkMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revert != nil
}

func (c *Cache) exitBulkMode(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// superseded by a later call
	if gen != c.bulkGen || c.revert == nil {
		return
	}

	c.revert = nil
	c.expiry.Store(int64(c.cfg.Expiry))

	log.Info("cache bulk mode ended", "expiry", c.cfg.Expiry)
}
