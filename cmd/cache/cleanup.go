package cache

import (
	"context"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/spf13/cobra"
)

type cleanupResult struct {
	Tier    cache.Tier  `json:"tier" yaml:"tier"`
	Removed int         `json:"removed" yaml:"removed"`
	Usage   cache.Usage `json:"usage" yaml:"usage"`
}

var tierFlag string

var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	Short:   "Force a cache cleanup tier",
	Example: "jobassist cache cleanup --tier emergency",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := cache.ParseTier(tierFlag)
		if err != nil {
			return err
		}

		return withCache(cmd.Context(), func(ctx context.Context, c *cache.Cache) error {
			removed := c.ForceCleanup(ctx, tier)
			return writeOutput(cmd, output, cleanupResult{
				Tier:    tier,
				Removed: removed,
				Usage:   c.Usage(ctx),
			})
		})
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&tierFlag, "tier", string(cache.TierAggressive), "cleanup tier: proactive, aggressive or emergency")
}
