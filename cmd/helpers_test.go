package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"modhook.dev/pkg/modhook/internal/adapter"
	controllermocks "modhook.dev/pkg/modhook/internal/controller/mocks"
	domainmocks "modhook.dev/pkg/modhook/internal/domain/mocks"
	"modhook.dev/pkg/modhook/internal/fixture"
	m "modhook.dev/pkg/modhook/internal/model"
)

// newTestCmd returns a root command with the given subcommands whose output
// goes to the returned buffers.
func newTestCmd(subs ...*cobra.Command) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := newRootCmd()
	cmd.AddCommand(subs...)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(&bytes.Buffer{})

	return cmd, out, errOut
}

// execute runs cmd with args and a log file inside a temporary directory.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()

	cmd.SetArgs(append(args, "--"+logFileFlagName, filepath.Join(t.TempDir(), "modhook.log")))

	return cmd.Execute()
}

// withMocks swaps the package workflow and ui for mocks.
func withMocks(t *testing.T) (*domainmocks.MockWorkflow, *controllermocks.MockUI) {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)
	mockUI := controllermocks.NewMockUI(t)

	originalWorkflow, originalUI := workflow, ui
	workflow, ui = mockWorkflow, mockUI

	t.Cleanup(func() { workflow, ui = originalWorkflow, originalUI })

	return mockWorkflow, mockUI
}

// hostDir writes the fixture host and loader modules under the default
// names into a temporary directory.
func hostDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	modules := adapter.NewLocalModuleFileAdapter()

	require.NoError(t, modules.Save(fixture.HostModule(), m.Path(filepath.Join(dir, defaultTargetModule))))
	require.NoError(t, modules.Save(fixture.LoaderModule(), m.Path(filepath.Join(dir, defaultTargetLoaderModule))))

	return dir
}
