package cmd

import (
	"github.com/caesium-cloud/jobassist/cmd/cache"
	"github.com/caesium-cloud/jobassist/cmd/start"
	"github.com/spf13/cobra"
)

var cmds = []*cobra.Command{
	start.Cmd,
	cache.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use:   "jobassist",
		Short: "Job analysis cache and requester for the job assistant extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
