package cache

import (
	"time"

	"github.com/caesium-cloud/jobassist/pkg/env"
)

const (
	// DefaultMaxEntries bounds the number of indexed entries.
	DefaultMaxEntries = 100
	// DefaultExpiry is how long an entry stays valid after creation.
	DefaultExpiry = 24 * time.Hour
	// DefaultBulkExpiry replaces the expiry while bulk mode is active.
	DefaultBulkExpiry = 12 * time.Hour
	// DefaultBulkRevertDelay is how long bulk mode lasts.
	DefaultBulkRevertDelay = time.Hour
	// DefaultCleanupSchedule runs the janitor hourly.
	DefaultCleanupSchedule = "@every 1h"
	// DefaultQuotaBytes is assumed when the store cannot report a quota.
	DefaultQuotaBytes int64 = 10 * 1024 * 1024
)

// Thresholds are usage ratios that trigger cleanup tiers.
type Thresholds struct {
	Proactive float64 `json:"proactive" yaml:"proactive"`
	Critical  float64 `json:"critical" yaml:"critical"`
	Emergency float64 `json:"emergency" yaml:"emergency"`
	// Bulk triggers an aggressive cleanup before a bulk write burst.
	Bulk float64 `json:"bulk" yaml:"bulk"`
}

// DefaultThresholds returns the 80/90/95 percent tiers and the 70
// percent bulk trigger.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Proactive: 0.80,
		Critical:  0.90,
		Emergency: 0.95,
		Bulk:      0.70,
	}
}

// Fractions are the share of live entries each cleanup tier removes.
type Fractions struct {
	Proactive  float64 `json:"proactive" yaml:"proactive"`
	Aggressive float64 `json:"aggressive" yaml:"aggressive"`
	Emergency  float64 `json:"emergency" yaml:"emergency"`
}

// DefaultFractions returns 20, 30 and 50 percent.
func DefaultFractions() Fractions {
	return Fractions{
		Proactive:  0.20,
		Aggressive: 0.30,
		Emergency:  0.50,
	}
}

// Config tunes a Cache.
type Config struct {
	MaxEntries         int
	Expiry             time.Duration
	BulkExpiry         time.Duration
	BulkRevertDelay    time.Duration
	CleanupSchedule    string
	FallbackQuotaBytes int64
	WatchChanges       bool
	Thresholds         Thresholds
	Fractions          Fractions
}

// DefaultConfig returns the stock cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:         DefaultMaxEntries,
		Expiry:             DefaultExpiry,
		BulkExpiry:         DefaultBulkExpiry,
		BulkRevertDelay:    DefaultBulkRevertDelay,
		CleanupSchedule:    DefaultCleanupSchedule,
		FallbackQuotaBytes: DefaultQuotaBytes,
		WatchChanges:       true,
		Thresholds:         DefaultThresholds(),
		Fractions:          DefaultFractions(),
	}
}

// ConfigFrom maps processed environment variables onto a Config.
func ConfigFrom(vars env.Environment) Config {
	cfg := DefaultConfig()
	cfg.MaxEntries = vars.CacheMaxEntries
	cfg.Expiry = vars.CacheExpiry
	cfg.BulkExpiry = vars.CacheBulkExpiry
	cfg.BulkRevertDelay = vars.CacheBulkRevertDelay
	cfg.CleanupSchedule = vars.CacheCleanupSchedule
	cfg.WatchChanges = vars.CacheWatchChanges
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.MaxEntries <= 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.Expiry <= 0 {
		c.Expiry = def.Expiry
	}
	if c.BulkExpiry <= 0 {
		c.BulkExpiry = def.BulkExpiry
	}
	if c.BulkRevertDelay <= 0 {
		c.BulkRevertDelay = def.BulkRevertDelay
	}
	if c.CleanupSchedule == "" {
		c.CleanupSchedule = def.CleanupSchedule
	}
	if c.FallbackQuotaBytes <= 0 {
		c.FallbackQuotaBytes = def.FallbackQuotaBytes
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = def.Thresholds
	}
	if c.Fractions == (Fractions{}) {
		c.Fractions = def.Fractions
	}

	return c
}
