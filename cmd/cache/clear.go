package cache

import (
	"context"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/spf13/cobra"
)

type clearResult struct {
	Cleared int `json:"cleared" yaml:"cleared"`
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(ctx context.Context, c *cache.Cache) error {
			return writeOutput(cmd, output, clearResult{Cleared: c.Clear(ctx)})
		})
	},
}
