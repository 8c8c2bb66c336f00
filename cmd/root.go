// Package cmd provides the root command and CLI setup for modhook.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"modhook.dev/pkg/modhook/internal/adapter"
	"modhook.dev/pkg/modhook/internal/controller"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

var fsAdapter adapter.FSAdapter
var moduleAdapter adapter.ModuleFileAdapter

// workflow and ui are built per command from the current configuration
// unless set, which tests do to inject mocks.
var workflow domain.Workflow
var ui controller.UI

var dirFlag string
var requireVersionFlag string
var mismatchMessageFlag string
var yesFlag bool
var logFileFlag string
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	fsAdapter = adapter.NewLocalFSAdapter()
	moduleAdapter = adapter.NewLocalModuleFileAdapter()
}

const rootLongDescription = `modhook splices a call to a plugin loader into a compiled host module
so that third-party plugins run when the host starts.

Without a subcommand it installs the hook: the host module is checked,
backed up next to itself and patched. Installing twice is a no-op.`

var rootExample = heredoc.Doc(`
	# install the hook into the module in the current directory
	$ modhook

	# install into another directory, only for host version 1.2.x
	$ modhook --dir ./game --require-version "~> 1.2.0"

	# move a legacy hook without prompting
	$ modhook update -y

	# undo the patch
	$ modhook restore
`)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

// newRootCmd builds a root command with its persistent flags.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "modhook",
		Short:         "Install a plugin loader hook into a compiled host module",
		Long:          rootLongDescription,
		Example:       rootExample,
		Version:       toolVersion(),
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: runInstall,
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&dirFlag, dirFlagName, "d", viper.GetString(targetDirKey), "directory holding the host module")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(dirFlagName), targetDirKey)

	cmd.PersistentFlags().StringVarP(&requireVersionFlag, requireVersionFlagName, "r", viper.GetString(versionRequiredKey),
		"required host version (exact or a constraint such as \">= 1.2, < 2\")")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(requireVersionFlagName), versionRequiredKey)

	cmd.PersistentFlags().StringVar(&mismatchMessageFlag, mismatchMessageFlagName, viper.GetString(versionMismatchMessageKey),
		"extra text shown when the host version does not match")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(mismatchMessageFlagName), versionMismatchMessageKey)

	cmd.PersistentFlags().BoolVarP(&yesFlag, yesFlagName, "y", false, "never prompt")

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "path of the log file")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVar(&verboseFlag, verboseFlagName, viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}

		return nil
	}
}

func usageError(err error) error {
	return &m.UsageError{Err: err}
}

func toolVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "unknown"
	}

	return info.Main.Version
}

// currentWorkflow returns the injected workflow or builds one from the
// current configuration.
func currentWorkflow() domain.Workflow {
	if workflow != nil {
		return workflow
	}

	config := workflowConfig()

	return domain.NewWorkflow(
		fsAdapter,
		moduleAdapter,
		domain.NewPatcher(moduleAdapter, config.Patch),
		domain.NewBackupManager(fsAdapter, moduleAdapter, config.Detect),
		domain.NewLoader(fsAdapter, pluginOpener(viper.GetStringSlice(pluginsExtensionsKey))),
		config,
	)
}

// pluginOpener combines the backends for the configured extensions.
func pluginOpener(extensions []string) adapter.PluginOpener {
	var opener adapter.MultiOpener

	for _, ext := range extensions {
		switch strings.ToLower(ext) {
		case ".so":
			opener = append(opener, adapter.NewSharedObjectOpener())
		case ".o":
			opener = append(opener, adapter.NewObjectFileOpener())
		default:
			slog.Warn("Unsupported plugin extension", "extension", ext)
		}
	}

	return opener
}

// currentUI returns the injected UI or one writing to cmd's streams.
func currentUI(cmd *cobra.Command) controller.UI {
	if ui != nil {
		return ui
	}

	return controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))
}

// pause waits for a key press after a mutating command unless prompts are
// disabled.
func pause(ctx context.Context, out controller.UI) error {
	if yesFlag {
		return nil
	}

	return out.Pause(ctx)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cmd, err := rootCmd.ExecuteC()
	if cmd == nil {
		cmd = rootCmd
	}

	if err != nil {
		slog.Error("Command failed", "command", cmd.Name(), "error", err)
		currentUI(cmd).DisplayError(context.Background(), err)
	}

	os.Exit(exitCode(err))
}
