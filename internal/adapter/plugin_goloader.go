//go:build goloader

package adapter

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/pkujhd/goloader"
	m "modhook.dev/pkg/modhook/internal/model"
)

// ObjectFileOpener links Go object files (.o, produced by `go tool compile`)
// into the running process. Symbols carry no type information, so only
// parameterless entry functions are exposed.
type ObjectFileOpener struct {
	once    sync.Once
	symbols map[string]uintptr
	regErr  error
}

// NewObjectFileOpener returns an opener for .o files.
func NewObjectFileOpener() *ObjectFileOpener {
	return &ObjectFileOpener{}
}

// Supports accepts .o files.
func (o *ObjectFileOpener) Supports(path m.Path) bool {
	return filepath.Ext(string(path)) == ".o"
}

// Open links the object file under the "main" package path and collects
// the functions whose symbol name ends in entry.
func (o *ObjectFileOpener) Open(path m.Path, entry string) (Plugin, error) {
	o.once.Do(func() {
		o.symbols = make(map[string]uintptr)
		o.regErr = goloader.RegSymbol(o.symbols)
	})

	if o.regErr != nil {
		return nil, fmt.Errorf("register host symbols: %w", o.regErr)
	}

	linker, err := goloader.ReadObj(string(path), PackageTypeName)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}

	module, err := goloader.Load(linker, o.symbols)
	if err != nil {
		return nil, fmt.Errorf("link object %s: %w", path, err)
	}

	byType := make(map[string][]m.PluginMethod)

	for sym, addr := range module.Syms {
		dot := strings.LastIndexByte(sym, '.')
		if dot <= 0 || entry == "" || sym[dot+1:] != entry {
			continue
		}

		typeName := sym[:dot]
		byType[typeName] = append(byType[typeName], m.PluginMethod{
			Name:   sym[dot+1:],
			Public: true,
			Static: true,
			Func:   reflect.ValueOf(asFunc(addr)),
		})
	}

	names := make([]string, 0, len(byType))
	for name := range byType {
		names = append(names, name)
	}

	sort.Strings(names)

	plugin := &StaticPlugin{}
	for _, name := range names {
		plugin.types = append(plugin.types, m.PluginType{FullName: name, Methods: byType[name]})
	}

	return plugin, nil
}

// asFunc turns a linked code address into a callable func value.
func asFunc(addr uintptr) func() {
	p := addr
	ptr := unsafe.Pointer(&p)

	return *(*func())(unsafe.Pointer(&ptr))
}
