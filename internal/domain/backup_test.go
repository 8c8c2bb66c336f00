package domain

import (
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

func newTestBackupManager() BackupManager {
	return NewBackupManager(adapter.NewLocalFSAdapter(), adapter.NewLocalModuleFileAdapter(), testDetectConfig())
}

func TestBackupManager(t *testing.T) {
	t.Run("restore is byte-identical to the backed up module", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		backup := live + testSuffix
		saveModule(t, fixture.HostModule(), live)
		original := readBytes(t, live)

		b := newTestBackupManager()

		snap, err := b.Backup(m.Path(live), m.Path(backup))
		require.NoError(t, err)
		assert.Equal(t, int64(len(original)), snap.Size)
		assert.NotEmpty(t, snap.Hash)

		injected := fixture.HostModule()
		injectAt(t, injected, fixture.HostType, fixture.HookMethod)
		saveModule(t, injected, live)
		require.NotEqual(t, original, readBytes(t, live))

		restored, err := b.Restore(m.Path(live), m.Path(backup))
		require.NoError(t, err)
		assert.Equal(t, snap.Hash, restored.Hash)
		assert.Equal(t, original, readBytes(t, live))
	})

	t.Run("backup replaces an older backup", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		backup := live + testSuffix
		require.NoError(t, os.WriteFile(backup, []byte("stale"), 0o644))
		saveModule(t, fixture.HostModule(), live)

		_, err := newTestBackupManager().Backup(m.Path(live), m.Path(backup))
		require.NoError(t, err)
		assert.Equal(t, readBytes(t, live), readBytes(t, backup))
	})

	t.Run("missing backup", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		saveModule(t, fixture.HostModule(), live)

		_, err := newTestBackupManager().Restore(m.Path(live), m.Path(live+testSuffix))

		var missing *m.BackupMissingError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, m.Path(live+testSuffix), missing.Path)
	})

	t.Run("injected backup is refused and live bytes are untouched", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		backup := live + testSuffix

		injected := fixture.HostModule()
		injectAt(t, injected, fixture.SerializerType, "Tick")
		saveModule(t, injected, backup)

		liveMod := fixture.HostModule()
		injectAt(t, liveMod, fixture.HostType, fixture.HookMethod)
		saveModule(t, liveMod, live)
		before := readBytes(t, live)

		_, err := newTestBackupManager().Restore(m.Path(live), m.Path(backup))

		var corrupt *m.BackupCorruptError
		require.True(t, errors.As(err, &corrupt))
		assert.Equal(t, m.LegacyInjection, corrupt.State.Kind)
		assert.Equal(t, before, readBytes(t, live))
	})

	t.Run("original loads the backup without touching the live module", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		backup := live + testSuffix
		saveModule(t, fixture.HostModule(), backup)

		injected := fixture.HostModule()
		injectAt(t, injected, fixture.HostType, fixture.HookMethod)
		saveModule(t, injected, live)
		before := readBytes(t, live)

		mod, snap, err := newTestBackupManager().Original(m.Path(backup))
		require.NoError(t, err)
		assert.Equal(t, m.NotInjected, Detect(mod, testDetectConfig()).State.Kind)
		assert.Equal(t, int64(len(readBytes(t, backup))), snap.Size)
		assert.Equal(t, before, readBytes(t, live))
	})

	t.Run("malformed backup is a parse error", func(t *testing.T) {
		dir := t.TempDir()
		live := filepath.Join(dir, testModuleName)
		backup := live + testSuffix
		saveModule(t, fixture.HostModule(), live)
		require.NoError(t, os.WriteFile(backup, []byte("HMOD garbage"), 0o644))

		_, err := newTestBackupManager().Restore(m.Path(live), m.Path(backup))

		var parse *m.ParseError
		require.True(t, errors.As(err, &parse))
	})
}
