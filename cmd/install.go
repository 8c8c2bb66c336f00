package cmd

import (
	"github.com/spf13/cobra"
)

// installCmd represents the install command. The root command runs it too.
var installCmd = newInstallCmd()

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Back up the host module and insert the loader hook",
		Long: `Check the host module, back it up next to itself and insert a call to
the plugin loader after the serializer setup. Does nothing if the hook
is already installed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runInstall,
	}
}

func runInstall(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := currentUI(cmd)

	res, err := currentWorkflow().Install(ctx, targetArgs())
	if err != nil {
		return err
	}

	if err := out.DisplayInstall(ctx, res); err != nil {
		return err
	}

	return pause(ctx, out)
}

func init() {
	rootCmd.AddCommand(installCmd)
}
