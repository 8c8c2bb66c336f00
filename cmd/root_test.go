package cmd

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "modhook.dev/pkg/modhook/internal/model"
)

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "modhook", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)
	assert.NotEmpty(t, cmd.Version)

	for _, name := range []string{dirFlagName, requireVersionFlagName, mismatchMessageFlagName, yesFlagName, logFileFlagName, verboseFlagName} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	assert.Equal(t, "d", cmd.PersistentFlags().Lookup(dirFlagName).Shorthand)
	assert.Equal(t, "y", cmd.PersistentFlags().Lookup(yesFlagName).Shorthand)
}

func TestRootCmd_HelpOutput(t *testing.T) {
	cmd, out, _ := newTestCmd()

	err := execute(t, cmd, "--help")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "modhook update -y")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	cmd, out, _ := newTestCmd()

	err := execute(t, cmd, "--version")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "modhook version")
}

func TestRootCmd_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"unknown command", []string{"frobnicate"}},
		{"extra argument", []string{"detect", "extra"}},
		{"too many load dirs", []string{"load", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, _ := newTestCmd(newDetectCmd(), newLoadCmd())

			err := execute(t, cmd, tt.args...)

			var usage *m.UsageError
			require.True(t, errors.As(err, &usage), "got %v", err)
			assert.Equal(t, exitUsage, exitCode(err))
		})
	}
}

func TestInit(t *testing.T) {
	assert.NotNil(t, fsAdapter)
	assert.NotNil(t, moduleAdapter)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup(dirFlagName))

	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"install", "restore", "update", "detect", "report-version", "inspect", "diff", "load", "init", "version"} {
		assert.True(t, names[name], "missing command %s", name)
	}
}

func TestPluginOpener(t *testing.T) {
	opener := pluginOpener([]string{".so", ".O", ".dll"})

	assert.Len(t, opener, 2)
}

func TestExecute_ProcessLevel_Success(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS") == "1" {
		rootCmd.SetArgs([]string{"detect", "--dir", os.Getenv("TEST_EXECUTE_DIR"), "--log-file", os.Getenv("TEST_EXECUTE_LOG")})
		Execute()

		return
	}

	dir := hostDir(t)

	cmd := exec.Command(os.Args[0], "-test.run=TestExecute_ProcessLevel_Success")
	cmd.Env = append(os.Environ(),
		"TEST_EXECUTE_SUBPROCESS=1",
		"TEST_EXECUTE_DIR="+dir,
		"TEST_EXECUTE_LOG="+filepath.Join(t.TempDir(), "modhook.log"),
	)
	output, err := cmd.CombinedOutput()

	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, string(output), "false")
}

func TestExecute_ProcessLevel_ExitCodes(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS_FAIL") == "1" {
		args := []string{os.Getenv("TEST_EXECUTE_COMMAND"), "--dir", os.Getenv("TEST_EXECUTE_DIR"), "--log-file", os.Getenv("TEST_EXECUTE_LOG")}
		if extra := os.Getenv("TEST_EXECUTE_EXTRA"); extra != "" {
			args = append(args, extra)
		}

		rootCmd.SetArgs(args)
		Execute()

		return
	}

	tests := []struct {
		name    string
		command string
		dir     func(t *testing.T) string
		extra   string
		want    int
	}{
		{
			name:    "bad flag",
			command: "detect",
			dir:     hostDir,
			extra:   "--bogus",
			want:    exitUsage,
		},
		{
			name:    "backup missing",
			command: "diff",
			dir:     hostDir,
			want:    exitBackupMissing,
		},
		{
			name:    "target missing",
			command: "detect",
			dir:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			want:    exitTargetMissing,
		},
		{
			name:    "loader missing",
			command: "install",
			dir: func(t *testing.T) string {
				dir := hostDir(t)
				require.NoError(t, os.Remove(filepath.Join(dir, defaultTargetLoaderModule)))

				return dir
			},
			want: exitLoaderMissing,
		},
		{
			name:    "version mismatch",
			command: "install",
			dir:     hostDir,
			extra:   "--require-version=9.9.9",
			want:    exitVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=TestExecute_ProcessLevel_ExitCodes")
			cmd.Env = append(os.Environ(),
				"TEST_EXECUTE_SUBPROCESS_FAIL=1",
				"TEST_EXECUTE_COMMAND="+tt.command,
				"TEST_EXECUTE_DIR="+tt.dir(t),
				"TEST_EXECUTE_EXTRA="+tt.extra,
				"TEST_EXECUTE_LOG="+filepath.Join(t.TempDir(), "modhook.log"),
			)
			output, err := cmd.CombinedOutput()

			var exitErr *exec.ExitError
			require.True(t, errors.As(err, &exitErr), "output: %s", output)
			assert.Equal(t, tt.want, exitErr.ExitCode(), "output: %s", output)
			assert.Contains(t, string(output), "Error:")
		})
	}
}
