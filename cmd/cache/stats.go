package cache

import (
	"context"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show analysis cache statistics",
	Example: "jobassist cache stats --output yaml",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(ctx context.Context, c *cache.Cache) error {
			stats := c.Stats(ctx)
			if stats.Error != "" {
				return errors.Errorf("failed to collect cache stats: %v", stats.Error)
			}
			return writeOutput(cmd, output, stats)
		})
	},
}
