package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"modhook.dev/pkg/modhook/internal/controller"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

// updateCmd represents the update command.
var updateCmd = newUpdateCmd()

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Restore the host module and install the current hook",
		Long: `Restore the host module from its backup and install the hook again at
the current location. Used after upgrading the loader or to move a legacy
hook. Asks for confirmation unless --yes is given.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := currentUI(cmd)

			res, err := currentWorkflow().Update(ctx, domain.UpdateArgs{
				TargetArgs: targetArgs(),
				Confirm:    confirmUpdate(ctx, out),
			})
			if err != nil {
				return err
			}

			if err := out.DisplayUpdate(ctx, res); err != nil {
				return err
			}

			return pause(ctx, out)
		},
	}
}

func confirmUpdate(ctx context.Context, out controller.UI) func(m.Detection) (bool, error) {
	if yesFlag {
		return nil
	}

	return func(det m.Detection) (bool, error) {
		return out.Confirm(ctx, fmt.Sprintf("The hook is installed in %s. Restore and reinstall it?", det.State.Location))
	}
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
