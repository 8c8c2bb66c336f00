package cmd

import (
	"github.com/spf13/cobra"
)

// reportVersionCmd represents the report-version command.
var reportVersionCmd = newReportVersionCmd()

func newReportVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report-version",
		Short: "Print the host version marker",
		Long: `Print the version constant compiled into the host module, or an empty
line if it has none.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			det, err := currentWorkflow().Detect(ctx, targetArgs())
			if err != nil {
				return err
			}

			return currentUI(cmd).DisplayHostVersion(ctx, det)
		},
	}
}

func init() {
	rootCmd.AddCommand(reportVersionCmd)
}
