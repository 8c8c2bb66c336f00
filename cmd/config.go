package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "modhook"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	dirFlagName             = "dir"
	requireVersionFlagName  = "require-version"
	mismatchMessageFlagName = "mismatch-message"
	yesFlagName             = "yes"
	logFileFlagName         = "log-file"
	verboseFlagName         = "verbose"
	backupFlagName          = "backup"

	targetDirKey          = "target.dir"
	targetModuleKey       = "target.module"
	targetLoaderModuleKey = "target.loader_module"
	targetBackupSuffixKey = "target.backup_suffix"

	hookTypeKey                = "hook.type"
	hookMethodKey              = "hook.method"
	hookAnchorKey              = "hook.anchor"
	hookStateMachineReturnsKey = "hook.state_machine_returns"
	hookStateMachineMarkerKey  = "hook.state_machine_marker"
	hookStepMethodKey          = "hook.step_method"

	injectTypeKey       = "inject.type"
	injectMethodKey     = "inject.method"
	injectReturnTypeKey = "inject.return_type"

	detectNamespaceKey = "detect.namespace"

	versionTypeKey            = "version.type"
	versionFieldKey           = "version.field"
	versionRequiredKey        = "version.required"
	versionMismatchMessageKey = "version.mismatch_message"

	pluginsDirKey        = "plugins.dir"
	pluginsEntryKey      = "plugins.entry"
	pluginsTypeKey       = "plugins.type"
	pluginsIgnoreKey     = "plugins.ignore"
	pluginsExtensionsKey = "plugins.extensions"
	pluginsLogKey        = "plugins.log"

	defaultTargetDir          = "."
	defaultTargetModule       = "HostApp.hmod"
	defaultTargetLoaderModule = "ModLoader.hmod"
	defaultTargetBackupSuffix = ".orig"

	defaultHookType               = "Host.Main"
	defaultHookMethod             = "Start"
	defaultHookAnchor             = "PrepareSerializer"
	defaultHookStateMachineMarker = "Iterator"
	defaultHookStepMethod         = "MoveNext"

	defaultInjectType       = "ModLoader.Loader"
	defaultInjectMethod     = "Init"
	defaultInjectReturnType = m.VoidType

	defaultVersionType  = "VersionInfo"
	defaultVersionField = "CURRENT_VERSION_NUMBER"

	defaultPluginsDir = "Mods"
	defaultPluginsLog = "modloader.log"

	envPrefix = "MODHOOK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".modhook.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var (
	defaultHookStateMachineReturns = []string{"IEnumerator"}
	defaultPluginsExtensions       = []string{".so", ".o"}
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		// The logger is not configured yet.
		_, _ = fmt.Fprintf(os.Stderr, "modhook: ignoring %s: %v\n", configFileName, err)
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(targetDirKey, defaultTargetDir)
	viper.SetDefault(targetModuleKey, defaultTargetModule)
	viper.SetDefault(targetLoaderModuleKey, defaultTargetLoaderModule)
	viper.SetDefault(targetBackupSuffixKey, defaultTargetBackupSuffix)

	viper.SetDefault(hookTypeKey, defaultHookType)
	viper.SetDefault(hookMethodKey, defaultHookMethod)
	viper.SetDefault(hookAnchorKey, defaultHookAnchor)
	viper.SetDefault(hookStateMachineReturnsKey, defaultHookStateMachineReturns)
	viper.SetDefault(hookStateMachineMarkerKey, defaultHookStateMachineMarker)
	viper.SetDefault(hookStepMethodKey, defaultHookStepMethod)

	viper.SetDefault(injectTypeKey, defaultInjectType)
	viper.SetDefault(injectMethodKey, defaultInjectMethod)
	viper.SetDefault(injectReturnTypeKey, defaultInjectReturnType)

	viper.SetDefault(detectNamespaceKey, "")

	viper.SetDefault(versionTypeKey, defaultVersionType)
	viper.SetDefault(versionFieldKey, defaultVersionField)
	viper.SetDefault(versionRequiredKey, "")
	viper.SetDefault(versionMismatchMessageKey, "")

	viper.SetDefault(pluginsDirKey, defaultPluginsDir)
	viper.SetDefault(pluginsEntryKey, domain.DefaultEntryMethod)
	viper.SetDefault(pluginsTypeKey, "")
	viper.SetDefault(pluginsIgnoreKey, []string{})
	viper.SetDefault(pluginsExtensionsKey, defaultPluginsExtensions)
	viper.SetDefault(pluginsLogKey, defaultPluginsLog)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// hookTarget is the method whose body receives the hook call.
func hookTarget() domain.HookTarget {
	return domain.HookTarget{Type: viper.GetString(hookTypeKey), Method: viper.GetString(hookMethodKey)}
}

// hookRef is the expected signature of the inserted call.
func hookRef() m.MethodRef {
	return m.MethodRef{
		Scope:         strings.TrimSuffix(viper.GetString(targetLoaderModuleKey), filepath.Ext(viper.GetString(targetLoaderModuleKey))),
		DeclaringType: viper.GetString(injectTypeKey),
		Name:          viper.GetString(injectMethodKey),
		ReturnType:    viper.GetString(injectReturnTypeKey),
	}
}

func patchConfig() domain.PatchConfig {
	return domain.PatchConfig{
		Target: hookTarget(),
		Anchor: viper.GetString(hookAnchorKey),
		Locator: domain.LocatorOptions{
			StateMachineReturns: viper.GetStringSlice(hookStateMachineReturnsKey),
			Marker:              viper.GetString(hookStateMachineMarkerKey),
			StepMethod:          viper.GetString(hookStepMethodKey),
		},
	}
}

func detectConfig() domain.DetectConfig {
	return domain.DetectConfig{
		Hook:         hookRef(),
		Target:       hookTarget(),
		Namespace:    viper.GetString(detectNamespaceKey),
		VersionType:  viper.GetString(versionTypeKey),
		VersionField: viper.GetString(versionFieldKey),
	}
}

func workflowConfig() domain.WorkflowConfig {
	return domain.WorkflowConfig{
		ModuleName:       viper.GetString(targetModuleKey),
		LoaderModuleName: viper.GetString(targetLoaderModuleKey),
		BackupSuffix:     viper.GetString(targetBackupSuffixKey),
		Patch:            patchConfig(),
		Detect:           detectConfig(),
	}
}

func targetArgs() domain.TargetArgs {
	return domain.TargetArgs{
		Dir:             m.Path(viper.GetString(targetDirKey)),
		RequiredVersion: viper.GetString(versionRequiredKey),
		MismatchMessage: viper.GetString(versionMismatchMessageKey),
	}
}

func loadOptions() domain.LoadOptions {
	return domain.LoadOptions{
		EntryMethod: viper.GetString(pluginsEntryKey),
		TypeName:    viper.GetString(pluginsTypeKey),
		Ignore:      viper.GetStringSlice(pluginsIgnoreKey),
		LogName:     viper.GetString(pluginsLogKey),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
