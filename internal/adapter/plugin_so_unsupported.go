//go:build !((linux || darwin || freebsd) && cgo)

package adapter

import (
	"fmt"
	"path/filepath"

	m "modhook.dev/pkg/modhook/internal/model"
)

// SharedObjectOpener reports .so plugins as unsupported on this platform.
type SharedObjectOpener struct{}

// NewSharedObjectOpener returns an opener that rejects every .so file.
func NewSharedObjectOpener() *SharedObjectOpener {
	return &SharedObjectOpener{}
}

// Supports accepts .so files so they are reported rather than ignored.
func (o *SharedObjectOpener) Supports(path m.Path) bool {
	return filepath.Ext(string(path)) == ".so"
}

// Open always fails.
func (o *SharedObjectOpener) Open(path m.Path, _ string) (Plugin, error) {
	return nil, fmt.Errorf("%s: %w", path, m.ErrNotSupported)
}
