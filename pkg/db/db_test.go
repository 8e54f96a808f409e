package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/caesium-cloud/jobassist/internal/store/memory"
	"github.com/caesium-cloud/jobassist/internal/store/sqlstore"
	"github.com/caesium-cloud/jobassist/pkg/env"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	s, closeFn, err := Open(env.Environment{StoreType: "memory", CacheQuotaBytes: 1024})
	require.NoError(t, err)
	defer closeFn()

	require.IsType(t, &memory.Store{}, s)
	require.Equal(t, int64(1024), s.QuotaBytes())
}

func TestOpenSQLite(t *testing.T) {
	vars := env.Environment{
		StoreType:       "sqlite",
		DatabasePath:    filepath.Join(t.TempDir(), "cache.db"),
		CacheQuotaBytes: 4096,
	}

	s, closeFn, err := Open(vars)
	require.NoError(t, err)
	defer closeFn()

	require.IsType(t, &sqlstore.Store{}, s)
	require.NoError(t, s.Set(context.Background(), map[string][]byte{"k": []byte(`true`)}))

	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "true", string(got["k"]))
}

func TestOpenUnsupported(t *testing.T) {
	_, _, err := Open(env.Environment{StoreType: "cassandra"})
	require.Error(t, err)
}
