package cache

import (
	"context"
	"time"

	"github.com/caesium-cloud/jobassist/internal/event"
	"github.com/caesium-cloud/jobassist/internal/store"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

var scheduleParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// ParseSchedule validates a janitor schedule such as "@every 1h" or
// "0 * * * *".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cleanup schedule %q", spec)
	}
	return sched, nil
}

// Start launches the maintenance janitor and, when the store publishes
// changes, a watcher that re-probes usage after writes. Both stop when
// ctx is done or Close is called.
func (c *Cache) Start(ctx context.Context) error {
	sched, err := ParseSchedule(c.cfg.CleanupSchedule)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.cancel != nil {
		return errors.New("cache janitor already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.janitor(ctx, sched)

	if n, ok := c.store.(store.Notifier); ok && c.cfg.WatchChanges {
		changes, err := n.Subscribe(ctx)
		if err != nil {
			log.Warn("failed to subscribe to store changes", "error", err)
		} else {
			c.wg.Add(1)
			go c.watch(ctx, changes)
		}
	}

	log.Info(
		"cache janitor started",
		"schedule", c.cfg.CleanupSchedule,
		"expiry", c.Expiry(),
		"max_entries", c.cfg.MaxEntries,
	)

	return nil
}

// Close stops the janitor, the change watcher and any pending bulk
// mode revert. The cache stays usable for reads and writes.
func (c *Cache) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
		c.expiry.Store(int64(c.cfg.Expiry))
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Unlock()

	c.wg.Wait()

	return nil
}

// Maintain runs one maintenance pass: probe usage, sweep expired
// entries, trim again if usage is still high and log a snapshot.
func (c *Cache) Maintain(ctx context.Context) {
	start := time.Now()

	c.CheckUsage(ctx)

	expired := c.removeExpired(ctx)

	if u, err := c.usage(ctx); err == nil && u.Ratio >= c.cfg.Thresholds.Proactive {
		c.cleanup(ctx, TierProactive)
	}

	stats := c.Stats(ctx)

	log.Info(
		"cache maintenance complete",
		"entries", stats.TotalEntries,
		"expired", expired,
		"size", stats.TotalSize,
		"hit_rate", stats.HitRate,
		"storage_usage_ratio", stats.StorageUsageRatio,
		"duration", time.Since(start),
	)
}

func (c *Cache) janitor(ctx context.Context, sched cron.Schedule) {
	defer c.wg.Done()

	for {
		select {
		case <-time.After(time.Until(sched.Next(time.Now()))):
			c.Maintain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// watch re-probes usage after external or local writes. Bursts of
// events are coalesced into one probe, and index-only writes are
// ignored so cleanups do not retrigger themselves.
func (c *Cache) watch(ctx context.Context, changes <-chan event.Event) {
	defer c.wg.Done()

	for {
		select {
		case e, ok := <-changes:
			if !ok {
				return
			}
			if !relevant(e) {
				continue
			}
			drain(changes)
			c.CheckUsage(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func relevant(e event.Event) bool {
	if e.Type != event.TypeItemsSet {
		return false
	}
	for _, key := range e.Keys {
		if key != IndexKey {
			return true
		}
	}
	return false
}

func drain(changes <-chan event.Event) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
