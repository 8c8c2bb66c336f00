//go:build (linux || darwin || freebsd) && cgo

package adapter

import (
	"fmt"
	"path/filepath"
	"plugin"

	m "modhook.dev/pkg/modhook/internal/model"
)

// SharedObjectOpener opens Go plugins built with -buildmode=plugin.
type SharedObjectOpener struct{}

// NewSharedObjectOpener returns an opener for .so files.
func NewSharedObjectOpener() *SharedObjectOpener {
	return &SharedObjectOpener{}
}

// Supports accepts .so files.
func (o *SharedObjectOpener) Supports(path m.Path) bool {
	return filepath.Ext(string(path)) == ".so"
}

// Open loads the shared object and collects its exported entry types plus
// the package-level function named entry.
func (o *SharedObjectOpener) Open(path m.Path, entry string) (Plugin, error) {
	p, err := plugin.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	var values []any

	if sym, err := p.Lookup(TypesSymbol); err == nil {
		exported, ok := sym.(*[]any)
		if !ok {
			return nil, fmt.Errorf("plugin %s: symbol %s is %T, want *[]any", path, TypesSymbol, sym)
		}

		values = *exported
	}

	funcs := make(map[string]any)

	if entry != "" {
		if sym, err := p.Lookup(entry); err == nil {
			funcs[entry] = sym
		}
	}

	version := ""
	if sym, err := p.Lookup(VersionSymbol); err == nil {
		if v, ok := sym.(*string); ok {
			version = *v
		}
	}

	return NewStaticPlugin(version, values, funcs), nil
}
