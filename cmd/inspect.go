package cmd

import (
	"github.com/spf13/cobra"
	"modhook.dev/pkg/modhook/internal/domain"
)

var inspectBackupFlag bool

// inspectCmd represents the inspect command.
var inspectCmd = newInspectCmd()

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the types of the host module",
		Long:  "Print a table of the host module's types with their method, instruction and nested type counts.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rows, err := currentWorkflow().Inspect(ctx, domain.InspectArgs{
				TargetArgs: targetArgs(),
				Backup:     inspectBackupFlag,
			})
			if err != nil {
				return err
			}

			return currentUI(cmd).DisplayInspection(ctx, rows)
		},
	}

	cmd.Flags().BoolVar(&inspectBackupFlag, backupFlagName, false, "inspect the backup instead of the live module")

	return cmd
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
