package domain

import (
	"fmt"
	"log/slog"

	"modhook.dev/pkg/modhook/internal/adapter"
	m "modhook.dev/pkg/modhook/internal/model"
)

// BackupManager snapshots and restores the host module.
type BackupManager interface {
	// Backup copies original over backup, replacing any earlier backup.
	Backup(original, backup m.Path) (m.File, error)

	// Restore copies backup over original after checking that the backup
	// does not itself contain the hook.
	Restore(original, backup m.Path) (m.File, error)

	// Original loads the backup into memory with the same checks as Restore.
	// Nothing on disk changes.
	Original(backup m.Path) (*m.Module, m.File, error)
}

type backupManager struct {
	fs      adapter.FSAdapter
	modules adapter.ModuleFileAdapter
	detect  DetectConfig
}

// NewBackupManager constructs a BackupManager. detect is used to vet backups
// before restoring from them.
func NewBackupManager(fs adapter.FSAdapter, modules adapter.ModuleFileAdapter, detect DetectConfig) BackupManager {
	return &backupManager{fs: fs, modules: modules, detect: detect}
}

func (b *backupManager) Backup(original, backup m.Path) (m.File, error) {
	if err := b.fs.CopyFile(original, backup); err != nil {
		return m.File{}, &m.WriteError{Path: backup, Err: err}
	}

	snap, err := b.fs.Snapshot(backup)
	if err != nil {
		return m.File{}, fmt.Errorf("inspect backup: %w", err)
	}

	slog.Info("backed up module", "from", original, "to", backup, "sha256", snap.Hash)

	return snap, nil
}

func (b *backupManager) Original(backup m.Path) (*m.Module, m.File, error) {
	if !b.fs.Exists(backup) {
		return nil, m.File{}, &m.BackupMissingError{Path: backup}
	}

	mod, err := b.modules.Load(backup)
	if err != nil {
		return nil, m.File{}, err
	}

	det := Detect(mod, b.detect)
	if det.State.Injected() {
		slog.Error("refusing to restore from injected backup", "backup", backup, "location", det.State.Location)
		return nil, m.File{}, &m.BackupCorruptError{Path: backup, State: det.State}
	}

	snap, err := b.fs.Snapshot(backup)
	if err != nil {
		return nil, m.File{}, fmt.Errorf("inspect backup: %w", err)
	}

	return mod, snap, nil
}

func (b *backupManager) Restore(original, backup m.Path) (m.File, error) {
	if _, _, err := b.Original(backup); err != nil {
		return m.File{}, err
	}

	if err := b.fs.CopyFile(backup, original); err != nil {
		return m.File{}, &m.WriteError{Path: original, Err: err}
	}

	snap, err := b.fs.Snapshot(original)
	if err != nil {
		return m.File{}, fmt.Errorf("inspect restored module: %w", err)
	}

	slog.Info("restored module", "from", backup, "to", original, "sha256", snap.Hash)

	return snap, nil
}
