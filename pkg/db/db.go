package db

import (
	"strings"

	"github.com/caesium-cloud/jobassist/internal/store"
	"github.com/caesium-cloud/jobassist/internal/store/memory"
	"github.com/caesium-cloud/jobassist/internal/store/sqlstore"
	"github.com/caesium-cloud/jobassist/pkg/env"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection opens the gorm database selected by the environment.
func Connection(vars env.Environment) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(vars.StoreType) {
	case "postgres":
		dialector = postgres.Open(vars.DatabaseDSN)
	case "sqlite", "":
		dialector = sqlite.Open(vars.DatabasePath)
	default:
		return nil, errors.Errorf("unsupported database type: %v", vars.StoreType)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return gdb, nil
}

// Open returns the persistent store selected by the environment and a
// function releasing its resources.
func Open(vars env.Environment) (store.Store, func(), error) {
	if strings.ToLower(vars.StoreType) == "memory" {
		log.Info("using in-memory store", "quota_bytes", vars.CacheQuotaBytes)
		return memory.New(vars.CacheQuotaBytes), func() {}, nil
	}

	gdb, err := Connection(vars)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("database close failure", "error", err)
			}
		}
	}

	s, err := sqlstore.New(gdb, vars.CacheQuotaBytes)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	log.Info("using sql store", "type", vars.StoreType, "quota_bytes", vars.CacheQuotaBytes)

	return s, closeFn, nil
}
