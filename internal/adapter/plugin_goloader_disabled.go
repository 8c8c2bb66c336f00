//go:build !goloader

package adapter

import (
	"fmt"
	"path/filepath"

	m "modhook.dev/pkg/modhook/internal/model"
)

// ObjectFileOpener reports .o plugins as unsupported; build with
// -tags goloader to link object files at runtime.
type ObjectFileOpener struct{}

// NewObjectFileOpener returns an opener that rejects every .o file.
func NewObjectFileOpener() *ObjectFileOpener {
	return &ObjectFileOpener{}
}

// Supports accepts .o files so they are reported rather than ignored.
func (o *ObjectFileOpener) Supports(path m.Path) bool {
	return filepath.Ext(string(path)) == ".o"
}

// Open always fails.
func (o *ObjectFileOpener) Open(path m.Path, _ string) (Plugin, error) {
	return nil, fmt.Errorf("%s: %w (rebuild with -tags goloader)", path, m.ErrNotSupported)
}
