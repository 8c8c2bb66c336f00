package cmd

import (
	"github.com/spf13/cobra"
)

// restoreCmd represents the restore command.
var restoreCmd = newRestoreCmd()

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Put the original host module back from its backup",
		Long: `Replace the patched host module with the backup taken at install time.
The backup is refused if it contains the hook itself.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := currentUI(cmd)

			res, err := currentWorkflow().Restore(ctx, targetArgs())
			if err != nil {
				return err
			}

			if err := out.DisplayRestore(ctx, res); err != nil {
				return err
			}

			return pause(ctx, out)
		},
	}
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
