package cmd

import (
	"errors"

	m "modhook.dev/pkg/modhook/internal/model"
)

// Process exit codes.
const (
	exitOK              = 0
	exitUnhandled       = 1
	exitUsage           = 2
	exitBackupMissing   = 3
	exitBackupCorrupt   = 4
	exitTargetMissing   = 5
	exitLoaderMissing   = 6
	exitVersionMismatch = 7
)

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var (
		usage    *m.UsageError
		missing  *m.BackupMissingError
		corrupt  *m.BackupCorruptError
		target   *m.TargetMissingError
		loader   *m.LoaderMissingError
		mismatch *m.VersionMismatchError
	)

	switch {
	case errors.As(err, &usage):
		return exitUsage
	case errors.As(err, &missing):
		return exitBackupMissing
	case errors.As(err, &corrupt):
		return exitBackupCorrupt
	case errors.As(err, &target):
		return exitTargetMissing
	case errors.As(err, &loader):
		return exitLoaderMissing
	case errors.As(err, &mismatch):
		return exitVersionMismatch
	default:
		return exitUnhandled
	}
}
