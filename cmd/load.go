package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

// loadCmd represents the load command.
var loadCmd = newLoadCmd()

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [dir]",
		Short: "Run the plugin loader over a directory",
		Long: `Open every plugin in dir (default: the plugin directory next to the host
module), call its entry points in file name order and print a report.
A failing plugin never stops the others.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			report, err := currentWorkflow().LoadPlugins(ctx, domain.LoadArgs{
				Dir:     pluginDir(args),
				Options: loadOptions(),
			})
			if err != nil {
				return err
			}

			return currentUI(cmd).DisplayLoadReport(ctx, report)
		},
	}
}

// pluginDir is the directory argument or plugins.dir under target.dir.
func pluginDir(args []string) m.Path {
	if len(args) > 0 {
		return m.Path(args[0])
	}

	dir := viper.GetString(pluginsDirKey)
	if filepath.IsAbs(dir) {
		return m.Path(dir)
	}

	return m.Path(filepath.Join(viper.GetString(targetDirKey), dir))
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
