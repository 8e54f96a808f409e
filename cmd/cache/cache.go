package cache

import (
	"context"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/pkg/db"
	"github.com/caesium-cloud/jobassist/pkg/env"
	"github.com/spf13/cobra"
)

// Cmd is the parent command for analysis cache operations.
var Cmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the analysis cache",
}

var (
	output string

	// openStore is replaced in tests.
	openStore = db.Open
)

func init() {
	Cmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")

	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(cleanupCmd)
}

// withCache opens the configured store and runs fn against a cache
// over it.
func withCache(ctx context.Context, fn func(context.Context, *cache.Cache) error) error {
	vars := env.Variables()

	s, closeFn, err := openStore(vars)
	if err != nil {
		return err
	}
	defer closeFn()

	c := cache.New(s, cache.ConfigFrom(vars))
	defer c.Close()

	return fn(ctx, c)
}
