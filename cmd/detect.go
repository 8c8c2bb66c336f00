package cmd

import (
	"github.com/spf13/cobra"
)

// detectCmd represents the detect command.
var detectCmd = newDetectCmd()

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print whether the hook is installed",
		Long:  "Print true if the host module calls the loader hook, false otherwise.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			det, err := currentWorkflow().Detect(ctx, targetArgs())
			if err != nil {
				return err
			}

			return currentUI(cmd).DisplayDetection(ctx, det)
		},
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
