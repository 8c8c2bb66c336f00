package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"modhook.dev/pkg/modhook/internal/adapter"
	"modhook.dev/pkg/modhook/internal/fixture"
	m "modhook.dev/pkg/modhook/internal/model"
)

const (
	testModuleName = "Host.hmod"
	testLoaderName = "ModLoader.hmod"
	testSuffix     = ".orig"
)

func testTarget() HookTarget {
	return HookTarget{Type: fixture.HostType, Method: fixture.HookMethod}
}

func testDetectConfig() DetectConfig {
	return DetectConfig{
		Hook:         fixture.HookRef(),
		Target:       testTarget(),
		VersionType:  fixture.VersionType,
		VersionField: fixture.VersionField,
	}
}

func testPatchConfig() PatchConfig {
	return PatchConfig{Target: testTarget(), Anchor: fixture.Anchor, Locator: DefaultLocatorOptions()}
}

func testWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		ModuleName:       testModuleName,
		LoaderModuleName: testLoaderName,
		BackupSuffix:     testSuffix,
		Patch:            testPatchConfig(),
		Detect:           testDetectConfig(),
	}
}

func newTestWorkflow(opener adapter.PluginOpener) Workflow {
	fs := adapter.NewLocalFSAdapter()
	modules := adapter.NewLocalModuleFileAdapter()

	if opener == nil {
		opener = adapter.NewMemoryPluginOpener()
	}

	return NewWorkflow(
		fs,
		modules,
		NewPatcher(modules, testPatchConfig()),
		NewBackupManager(fs, modules, testDetectConfig()),
		NewLoader(fs, opener),
		testWorkflowConfig(),
	)
}

// saveModule encodes mod to path.
func saveModule(t *testing.T, mod *m.Module, path string) {
	t.Helper()

	data, err := adapter.EncodeModule(mod)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func loadModule(t *testing.T, path string) *m.Module {
	t.Helper()

	mod, err := adapter.NewLocalModuleFileAdapter().Load(m.Path(path))
	require.NoError(t, err)

	return mod
}

// installDir writes the host and loader modules into a fresh directory.
func installDir(t *testing.T, host *m.Module) string {
	t.Helper()

	dir := t.TempDir()
	saveModule(t, host, filepath.Join(dir, testModuleName))
	saveModule(t, fixture.LoaderModule(), filepath.Join(dir, testLoaderName))

	return dir
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return data
}

// injectAt inserts the hook call at the start of the named method.
func injectAt(t *testing.T, mod *m.Module, typeName, method string) {
	t.Helper()

	typ := mod.Type(typeName)
	require.NotNil(t, typ, typeName)

	md := typ.Method(method)
	require.NotNil(t, md, method)

	_, err := InsertHookCall(md.Body, 0, fixture.HookRef())
	require.NoError(t, err)
}
