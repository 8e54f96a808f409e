package env

import (
	"time"

	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for jobassist.
func Process() error {
	if err := envconfig.Process("jobassist", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by jobassist.
type Environment struct {
	LogLevel string `default:"info"`
	Port     int    `default:"8080"`

	// StoreType selects the persistent store backing the
	// analysis cache: sqlite, postgres or memory.
	StoreType    string `default:"sqlite"`
	DatabasePath string `default:"jobassist.db"`
	DatabaseDSN  string `default:"host=postgres user=postgres password=postgres dbname=jobassist port=5432 sslmode=disable"`

	CacheMaxEntries      int           `default:"100"`
	CacheExpiry          time.Duration `default:"24h"`
	CacheBulkExpiry      time.Duration `default:"12h"`
	CacheBulkRevertDelay time.Duration `default:"1h"`
	CacheCleanupSchedule string        `default:"@every 1h"`
	CacheQuotaBytes      int64         `default:"10485760"`
	CacheWatchChanges    bool          `default:"true"`

	AnalyzerURL         string        `default:"http://localhost:5000"`
	AnalyzerTimeout     time.Duration `default:"60s"`
	AnalyzerConcurrency int           `default:"4"`
	ProfilePath         string        `default:""`
}
