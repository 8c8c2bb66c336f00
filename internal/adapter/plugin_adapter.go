package adapter

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	m "modhook.dev/pkg/modhook/internal/model"
)

// Symbols a plugin exports for discovery.
const (
	// TypesSymbol names an exported []any whose elements are values of the
	// plugin's entry types.
	TypesSymbol = "Types"
	// VersionSymbol names an optional exported string.
	VersionSymbol = "Version"
	// PackageTypeName is the pseudo-type under which exported package-level
	// functions are listed.
	PackageTypeName = "main"
)

// Plugin is an opened plugin module.
type Plugin interface {
	Version() string
	Types() []m.PluginType
}

// PluginOpener opens plugin files of the formats it supports.
type PluginOpener interface {
	// Supports reports whether path has a format this opener understands.
	Supports(path m.Path) bool

	// Open loads the plugin. entry names the package-level function to
	// expose besides the exported types. Implementations may panic on broken
	// input; callers recover.
	Open(path m.Path, entry string) (Plugin, error)
}

// MultiOpener dispatches to the first opener that supports a path.
type MultiOpener []PluginOpener

// Supports reports whether any opener supports path.
func (o MultiOpener) Supports(path m.Path) bool {
	for _, opener := range o {
		if opener.Supports(path) {
			return true
		}
	}

	return false
}

// Open delegates to the first supporting opener.
func (o MultiOpener) Open(path m.Path, entry string) (Plugin, error) {
	for _, opener := range o {
		if opener.Supports(path) {
			return opener.Open(path, entry)
		}
	}

	return nil, fmt.Errorf("%s: %w", path, m.ErrNotSupported)
}

// StaticPlugin is a Plugin assembled from Go values.
type StaticPlugin struct {
	version string
	types   []m.PluginType
}

// NewStaticPlugin describes the entry types behind values plus the
// package-level functions in funcs.
func NewStaticPlugin(version string, values []any, funcs map[string]any) *StaticPlugin {
	types := DescribeTypes(values)
	if len(funcs) > 0 {
		types = append(types, DescribeFuncs(PackageTypeName, funcs))
	}

	return &StaticPlugin{version: version, types: types}
}

// Version returns the plugin's declared version.
func (p *StaticPlugin) Version() string { return p.version }

// Types returns the described entry types.
func (p *StaticPlugin) Types() []m.PluginType { return p.types }

// DescribeTypes reflects over values. Methods on a zero-size value receiver
// are static; pointer-receiver methods are listed as instance methods.
func DescribeTypes(values []any) []m.PluginType {
	types := make([]m.PluginType, 0, len(values))

	for _, v := range values {
		if v == nil {
			continue
		}

		rt := reflect.TypeOf(v)
		if rt.Kind() == reflect.Pointer {
			rt = rt.Elem()
		}

		pt := m.PluginType{FullName: rt.String()}
		static := rt.Size() == 0
		zero := reflect.Zero(rt)
		seen := make(map[string]bool)

		for i := range rt.NumMethod() {
			method := rt.Method(i)
			seen[method.Name] = true

			bound := zero.Method(i)
			pt.Methods = append(pt.Methods, m.PluginMethod{
				Name:   method.Name,
				Public: method.IsExported(),
				Static: static,
				Params: paramTypes(bound.Type()),
				Func:   bound,
			})
		}

		ptr := reflect.PointerTo(rt)
		for i := range ptr.NumMethod() {
			method := ptr.Method(i)
			if seen[method.Name] {
				continue
			}

			pt.Methods = append(pt.Methods, m.PluginMethod{
				Name:   method.Name,
				Public: method.IsExported(),
				Params: paramTypes(method.Type)[1:],
			})
		}

		types = append(types, pt)
	}

	return types
}

// DescribeFuncs lists package-level functions as static methods of typeName.
func DescribeFuncs(typeName string, funcs map[string]any) m.PluginType {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	pt := m.PluginType{FullName: typeName}

	for _, name := range names {
		fn := reflect.ValueOf(funcs[name])
		if fn.Kind() != reflect.Func {
			continue
		}

		pt.Methods = append(pt.Methods, m.PluginMethod{
			Name:   name,
			Public: isExportedName(name),
			Static: true,
			Params: paramTypes(fn.Type()),
			Func:   fn,
		})
	}

	return pt
}

func paramTypes(fn reflect.Type) []reflect.Type {
	params := make([]reflect.Type, 0, fn.NumIn())
	for i := range fn.NumIn() {
		params = append(params, fn.In(i))
	}

	return params
}

func isExportedName(name string) bool {
	return name != "" && strings.ToUpper(name[:1]) == name[:1]
}

// MemoryOpenFunc builds an in-process plugin for the requested entry name.
type MemoryOpenFunc func(entry string) (Plugin, error)

// MemoryPluginOpener serves plugins registered in-process, keyed by file
// name. Hosts use it for plugins linked into the binary.
type MemoryPluginOpener struct {
	mu      sync.Mutex
	plugins map[string]MemoryOpenFunc
}

// NewMemoryPluginOpener constructs an empty MemoryPluginOpener.
func NewMemoryPluginOpener() *MemoryPluginOpener {
	return &MemoryPluginOpener{plugins: make(map[string]MemoryOpenFunc)}
}

// Register binds a file name to an open function.
func (o *MemoryPluginOpener) Register(fileName string, open MemoryOpenFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.plugins[fileName] = open
}

// Supports reports whether a plugin was registered under path's base name.
func (o *MemoryPluginOpener) Supports(path m.Path) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, ok := o.plugins[filepath.Base(string(path))]

	return ok
}

// Open runs the registered open function.
func (o *MemoryPluginOpener) Open(path m.Path, entry string) (Plugin, error) {
	o.mu.Lock()
	open, ok := o.plugins[filepath.Base(string(path))]
	o.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", path, m.ErrNotSupported)
	}

	return open(entry)
}

// PackageFuncs returns a MemoryOpenFunc exposing the entry-named function
// from funcs, the way a shared object exposes only the symbol it is asked for.
func PackageFuncs(version string, funcs map[string]any) MemoryOpenFunc {
	return func(entry string) (Plugin, error) {
		selected := make(map[string]any)
		if fn, ok := funcs[entry]; ok {
			selected[entry] = fn
		}

		return NewStaticPlugin(version, nil, selected), nil
	}
}
