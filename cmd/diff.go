package cmd

import (
	"github.com/spf13/cobra"
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what the patch changed",
		Long:  "Print a unified diff between the instruction listings of the backup and the live host module.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			diff, err := currentWorkflow().Diff(ctx, targetArgs())
			if err != nil {
				return err
			}

			return currentUI(cmd).DisplayDiff(ctx, diff)
		},
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
