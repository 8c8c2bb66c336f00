// Package adapter contains filesystem, module-file and plugin adapters for the
// modhook CLI.
package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/moby/sys/atomicwriter"
	m "modhook.dev/pkg/modhook/internal/model"
)

// ModuleFileAdapter loads and stores compiled modules.
type ModuleFileAdapter interface {
	// Load parses the module at path. Malformed files yield *model.ParseError.
	Load(path m.Path) (*m.Module, error)

	// Save serialises the module and swaps it into place atomically. On any
	// failure the file at path is left as it was and *model.WriteError is
	// returned.
	Save(mod *m.Module, path m.Path) error
}

// LocalModuleFileAdapter reads and writes .hmod files on the local disk.
type LocalModuleFileAdapter struct{}

// NewLocalModuleFileAdapter constructs a LocalModuleFileAdapter.
func NewLocalModuleFileAdapter() *LocalModuleFileAdapter {
	return &LocalModuleFileAdapter{}
}

// Load reads and decodes a module file.
func (a *LocalModuleFileAdapter) Load(path m.Path) (*m.Module, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", path, err)
	}

	mod, err := DecodeModule(data)
	if err != nil {
		var parseErr *m.ParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = path
		}

		return nil, err
	}

	slog.Debug("loaded module", "path", path, "types", len(mod.Types), "bytes", len(data))

	return mod, nil
}

// Save encodes the module in memory and writes it through a temporary file
// that is renamed over path.
func (a *LocalModuleFileAdapter) Save(mod *m.Module, path m.Path) error {
	data, err := EncodeModule(mod)
	if err != nil {
		return &m.WriteError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(string(path)); err == nil {
		perm = info.Mode().Perm()
	}

	if err := atomicwriter.WriteFile(string(path), data, perm); err != nil {
		return &m.WriteError{Path: path, Err: err}
	}

	slog.Debug("saved module", "path", path, "bytes", len(data))

	return nil
}
