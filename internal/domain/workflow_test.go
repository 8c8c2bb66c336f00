package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modhook.dev/pkg/modhook/internal/adapter"
	"modhook.dev/pkg/modhook/internal/fixture"
	m "modhook.dev/pkg/modhook/internal/model"
)

func TestWorkflowInstall(t *testing.T) {
	ctx := context.Background()

	t.Run("install then install again is idempotent", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		original := readBytes(t, live)
		wf := newTestWorkflow(nil)

		first, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		assert.True(t, first.Injected)
		assert.Equal(t, m.NotInjected, first.Before.State.Kind)
		assert.Equal(t, 6, first.Anchor.Index)
		assert.Contains(t, first.Location, "MoveNext")
		assert.Equal(t, original, readBytes(t, live+testSuffix))

		patched := readBytes(t, live)

		second, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		assert.False(t, second.Injected)
		assert.Equal(t, m.CurrentInjection, second.Before.State.Kind)
		assert.Equal(t, patched, readBytes(t, live))
		assert.Equal(t, 1, fixture.CountCalls(loadModule(t, live), fixture.HookRef()))
	})

	t.Run("install restore round trip", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		original := readBytes(t, live)
		wf := newTestWorkflow(nil)

		_, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)

		res, err := wf.Restore(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		assert.True(t, res.Restored)
		assert.Equal(t, m.CurrentInjection, res.Before.State.Kind)
		assert.Equal(t, original, readBytes(t, live))

		again, err := wf.Restore(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		assert.False(t, again.Restored)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := newTestWorkflow(nil).Install(ctx, TargetArgs{Dir: m.Path(filepath.Join(t.TempDir(), "nope"))})

		var missing *m.TargetMissingError
		require.True(t, errors.As(err, &missing))
	})

	t.Run("missing host module", func(t *testing.T) {
		_, err := newTestWorkflow(nil).Install(ctx, TargetArgs{Dir: m.Path(t.TempDir())})

		var missing *m.TargetMissingError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, testModuleName, filepath.Base(string(missing.Path)))
	})

	t.Run("missing loader module", func(t *testing.T) {
		dir := t.TempDir()
		saveModule(t, fixture.HostModule(), filepath.Join(dir, testModuleName))

		_, err := newTestWorkflow(nil).Install(ctx, TargetArgs{Dir: m.Path(dir)})

		var missing *m.LoaderMissingError
		require.True(t, errors.As(err, &missing))
	})

	t.Run("version mismatch writes nothing", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		before := readBytes(t, live)

		_, err := newTestWorkflow(nil).Install(ctx, TargetArgs{Dir: m.Path(dir), RequiredVersion: "2.0.0"})

		var mismatch *m.VersionMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, fixture.HostVersion, mismatch.Actual)
		assert.Equal(t, before, readBytes(t, live))
		assert.NoFileExists(t, live+testSuffix)
	})

	t.Run("anchor missing writes nothing", func(t *testing.T) {
		host := fixture.HostModule()
		step := host.Type(fixture.HostType).Nested[0].Method("MoveNext")
		step.Body = m.NewBody(1, m.Instruction{OpCode: m.OpLdcI4, Int: 0}, m.Instruction{OpCode: m.OpRet})

		dir := installDir(t, host)
		live := filepath.Join(dir, testModuleName)
		before := readBytes(t, live)

		_, err := newTestWorkflow(nil).Install(ctx, TargetArgs{Dir: m.Path(dir)})

		var notFound *m.AnchorNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, before, readBytes(t, live))
		assert.NoFileExists(t, live+testSuffix)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestWorkflow(nil).Install(cancelled, TargetArgs{Dir: m.Path(t.TempDir())})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkflowUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("legacy injection is moved to the current location", func(t *testing.T) {
		host := fixture.HostModule()
		dir := installDir(t, host)
		live := filepath.Join(dir, testModuleName)
		require.NoError(t, adapter.NewLocalFSAdapter().CopyFile(m.Path(live), m.Path(live+testSuffix)))

		legacy := fixture.HostModule()
		injectAt(t, legacy, fixture.SerializerType, "Tick")
		saveModule(t, legacy, live)

		asked := false
		res, err := newTestWorkflow(nil).Update(ctx, UpdateArgs{
			TargetArgs: TargetArgs{Dir: m.Path(dir)},
			Confirm: func(det m.Detection) (bool, error) {
				asked = true
				assert.Equal(t, m.LegacyInjection, det.State.Kind)
				return true, nil
			},
		})
		require.NoError(t, err)
		assert.True(t, asked)
		assert.True(t, res.Updated())
		assert.Equal(t, m.NotInjected, res.Install.Before.State.Kind)

		det := Detect(loadModule(t, live), testDetectConfig())
		assert.Equal(t, m.CurrentInjection, det.State.Kind)
		assert.Equal(t, 1, fixture.CountCalls(loadModule(t, live), fixture.HookRef()))
	})

	t.Run("declined confirmation leaves the module alone", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		wf := newTestWorkflow(nil)

		_, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)

		before := readBytes(t, live)

		res, err := wf.Update(ctx, UpdateArgs{
			TargetArgs: TargetArgs{Dir: m.Path(dir)},
			Confirm:    func(m.Detection) (bool, error) { return false, nil },
		})
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.False(t, res.Updated())
		assert.Equal(t, before, readBytes(t, live))
	})

	t.Run("not injected is a no-op", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())

		res, err := newTestWorkflow(nil).Update(ctx, UpdateArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}})
		require.NoError(t, err)
		assert.False(t, res.Updated())
		assert.False(t, res.Cancelled)
		assert.NoFileExists(t, filepath.Join(dir, testModuleName+testSuffix))
	})

	t.Run("missing backup", func(t *testing.T) {
		legacy := fixture.HostModule()
		injectAt(t, legacy, fixture.SerializerType, "Tick")
		dir := installDir(t, legacy)

		_, err := newTestWorkflow(nil).Update(ctx, UpdateArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}})

		var missing *m.BackupMissingError
		require.True(t, errors.As(err, &missing))
	})

	t.Run("loader without the hook leaves the live module untouched", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		wf := newTestWorkflow(nil)

		_, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)

		saveModule(t, &m.Module{Name: fixture.LoaderModuleName}, filepath.Join(dir, testLoaderName))
		before := readBytes(t, live)

		_, err = wf.Update(ctx, UpdateArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}})

		var notFound *m.HookTargetNotFoundError
		require.True(t, errors.As(err, &notFound), "got %v", err)
		assert.Equal(t, before, readBytes(t, live))
		assert.Equal(t, m.CurrentInjection, Detect(loadModule(t, live), testDetectConfig()).State.Kind)
	})

	t.Run("injected backup leaves the live module untouched", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		live := filepath.Join(dir, testModuleName)
		wf := newTestWorkflow(nil)

		_, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		require.NoError(t, adapter.NewLocalFSAdapter().CopyFile(m.Path(live), m.Path(live+testSuffix)))
		before := readBytes(t, live)

		_, err = wf.Update(ctx, UpdateArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}})

		var corrupt *m.BackupCorruptError
		require.True(t, errors.As(err, &corrupt), "got %v", err)
		assert.Equal(t, before, readBytes(t, live))
	})
}

func TestWorkflowRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt backup", func(t *testing.T) {
		injected := fixture.HostModule()
		injectAt(t, injected, fixture.HostType, fixture.HookMethod)
		dir := installDir(t, injected)
		live := filepath.Join(dir, testModuleName)
		saveModule(t, injected, live+testSuffix)
		before := readBytes(t, live)

		_, err := newTestWorkflow(nil).Restore(ctx, TargetArgs{Dir: m.Path(dir)})

		var corrupt *m.BackupCorruptError
		require.True(t, errors.As(err, &corrupt))
		assert.Equal(t, before, readBytes(t, live))
	})

	t.Run("restore does not need the loader module", func(t *testing.T) {
		dir := installDir(t, fixture.HostModule())
		wf := newTestWorkflow(nil)

		_, err := wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		require.NoError(t, os.Remove(filepath.Join(dir, testLoaderName)))

		res, err := wf.Restore(ctx, TargetArgs{Dir: m.Path(dir)})
		require.NoError(t, err)
		assert.True(t, res.Restored)
	})
}

func TestWorkflowQueries(t *testing.T) {
	ctx := context.Background()
	dir := installDir(t, fixture.HostModule())
	wf := newTestWorkflow(nil)

	det, err := wf.Detect(ctx, TargetArgs{Dir: m.Path(dir)})
	require.NoError(t, err)
	assert.Equal(t, m.NotInjected, det.State.Kind)
	assert.Equal(t, fixture.HostVersion, det.HostVersion)

	_, err = wf.Diff(ctx, TargetArgs{Dir: m.Path(dir)})
	var missing *m.BackupMissingError
	require.True(t, errors.As(err, &missing))

	_, err = wf.Inspect(ctx, InspectArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}, Backup: true})
	require.True(t, errors.As(err, &missing))

	_, err = wf.Install(ctx, TargetArgs{Dir: m.Path(dir)})
	require.NoError(t, err)

	diff, err := wf.Diff(ctx, TargetArgs{Dir: m.Path(dir)})
	require.NoError(t, err)
	assert.Contains(t, diff, "+  IL_0007: call System.Void ModLoader.Loader::Init()")

	live, err := wf.Inspect(ctx, InspectArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}})
	require.NoError(t, err)
	backup, err := wf.Inspect(ctx, InspectArgs{TargetArgs: TargetArgs{Dir: m.Path(dir)}, Backup: true})
	require.NoError(t, err)
	require.Len(t, live, len(backup))
	assert.Equal(t, backup[1].Instructions+1, live[1].Instructions)
}

func TestWorkflowLoadPlugins(t *testing.T) {
	dir := t.TempDir()
	called := false
	opener := adapter.NewMemoryPluginOpener()
	registerPlugin(opener, "a.so", m.PluginType{FullName: "a.Mod", Methods: []m.PluginMethod{
		staticFunc("Init", func() { called = true }),
	}})
	touch(t, dir, "a.so")

	report, err := newTestWorkflow(opener).LoadPlugins(context.Background(), LoadArgs{Dir: m.Path(dir)})
	require.NoError(t, err)
	require.Len(t, report.Plugins, 1)
	assert.True(t, called)
}
