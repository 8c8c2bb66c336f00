package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"modhook.dev/pkg/modhook/internal/adapter"
	m "modhook.dev/pkg/modhook/internal/model"
	"modhook.dev/pkg/modhook/pkg"
)

// DefaultEntryMethod is the entry method name looked up in every plugin.
const DefaultEntryMethod = "Init"

// DefaultIgnoredFiles are never treated as plugins.
var DefaultIgnoredFiles = []string{"0Harmony.dll", "ModLoader.so"}

const notSpecified = "NotSpecified"

// LoadOptions control entry-point discovery and invocation.
type LoadOptions struct {
	// EntryMethod defaults to DefaultEntryMethod.
	EntryMethod string
	// TypeName restricts discovery to one fully qualified type.
	TypeName string
	// Args are passed positionally to entry methods that declare parameters.
	Args []any
	// Ignore lists file names skipped by LoadAll, in addition to
	// DefaultIgnoredFiles.
	Ignore []string
	// LogName is the loader log created inside the plugin directory. Empty
	// disables it.
	LogName string
}

// Invocation is a typed handle to one discovered entry method.
type Invocation struct {
	Type   string
	Method m.PluginMethod
}

// Call renders the handle as "Type.Method".
func (i Invocation) Call() string { return i.Type + "." + i.Method.Name }

// Loader discovers and invokes plugin entry points. Failures of individual
// plugins are recorded in the results and never returned.
type Loader interface {
	LoadPlugin(path m.Path, opts LoadOptions) m.PluginResult
	LoadAll(dir m.Path, opts LoadOptions) m.LoadReport
}

type loader struct {
	fs     adapter.FSAdapter
	opener adapter.PluginOpener
	log    pkg.ModLog
	now    func() time.Time
}

// NewLoader constructs a Loader.
func NewLoader(fs adapter.FSAdapter, opener adapter.PluginOpener) Loader {
	return &loader{fs: fs, opener: opener, log: pkg.NewModLog(""), now: time.Now}
}

// ScanEntryPoints is the capability scan: it keeps exported static methods
// named entry, on every type or only on typeName when given.
func ScanEntryPoints(types []m.PluginType, entry, typeName string) []Invocation {
	var out []Invocation

	for _, t := range types {
		if typeName != "" && t.FullName != typeName {
			continue
		}

		for _, method := range t.Methods {
			if method.Name != entry || !method.Public || !method.Static || !method.Func.IsValid() {
				continue
			}

			out = append(out, Invocation{Type: t.FullName, Method: method})
		}
	}

	return out
}

// MatchArguments builds the call arguments for method. Parameterless methods
// take no arguments whatever was supplied. Otherwise every argument must
// either be nil for a nillable parameter or have exactly the declared type.
func MatchArguments(call string, method m.PluginMethod, args []any) ([]reflect.Value, *m.ParameterMismatch) {
	if len(method.Params) == 0 {
		return nil, nil
	}

	mismatch := func() *m.ParameterMismatch {
		pm := &m.ParameterMismatch{Call: call, NilArgs: args == nil}

		for _, arg := range args {
			if arg == nil {
				pm.Supplied = append(pm.Supplied, "<nil>")
				continue
			}

			pm.Supplied = append(pm.Supplied, reflect.TypeOf(arg).String())
		}

		for _, param := range method.Params {
			pm.Declared = append(pm.Declared, param.String())
		}

		return pm
	}

	if len(args) != len(method.Params) {
		return nil, mismatch()
	}

	values := make([]reflect.Value, len(args))

	for i, arg := range args {
		param := method.Params[i]

		if arg == nil {
			if !nillable(param) {
				return nil, mismatch()
			}

			values[i] = reflect.Zero(param)

			continue
		}

		if reflect.TypeOf(arg) != param {
			return nil, mismatch()
		}

		values[i] = reflect.ValueOf(arg)
	}

	return values, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// Invoke matches arguments and calls the entry method, converting a panic or
// a returned non-nil error into a failed result.
func Invoke(file string, inv Invocation, args []any) (result m.InvocationResult) {
	result = m.InvocationResult{Type: inv.Type, Method: inv.Method.Name}

	values, mismatch := MatchArguments(inv.Call(), inv.Method, args)
	if mismatch != nil {
		result.Status = m.InvocationSkipped
		result.Mismatch = mismatch

		return result
	}

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			result.Status = m.InvocationFailed
			result.Err = &m.PluginLoadError{File: file, Call: inv.Call(), Err: err}
		}
	}()

	var out []reflect.Value
	if inv.Method.Func.Type().IsVariadic() {
		out = inv.Method.Func.CallSlice(values)
	} else {
		out = inv.Method.Func.Call(values)
	}

	if err := trailingError(out); err != nil {
		result.Status = m.InvocationFailed
		result.Err = &m.PluginLoadError{File: file, Call: inv.Call(), Err: err}

		return result
	}

	result.Status = m.InvocationCalled

	return result
}

func trailingError(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}

	last := out[len(out)-1]
	if last.Kind() != reflect.Interface || last.IsNil() {
		return nil
	}

	err, ok := last.Interface().(error)
	if !ok {
		return nil
	}

	return err
}

func (l *loader) LoadPlugin(path m.Path, opts LoadOptions) m.PluginResult {
	file := filepath.Base(string(path))
	result := m.PluginResult{File: file}

	entry := opts.EntryMethod
	if entry == "" {
		entry = DefaultEntryMethod
	}

	version, types, err := l.open(path, entry)
	if err != nil {
		result.Err = &m.PluginLoadError{File: file, Err: err}
		l.log.LogWithDate("Exception caught while loading %s: %v", file, err)
		slog.Error("failed to load plugin", "file", file, "error", err)

		return result
	}

	result.Version = version

	invocations := ScanEntryPoints(types, entry, opts.TypeName)
	if len(invocations) == 0 {
		typeName := opts.TypeName
		if typeName == "" {
			typeName = notSpecified
		}

		l.log.Log("Failed to find specified entry point: %s.%s", typeName, entry)
		slog.Warn("no entry point found", "file", file, "type", typeName, "method", entry)

		return result
	}

	for _, inv := range invocations {
		res := Invoke(file, inv, opts.Args)

		switch res.Status {
		case m.InvocationCalled:
			l.log.Log("Found and called entry point: %s", inv.Call())
			slog.Info("called entry point", "file", file, "call", inv.Call())
		case m.InvocationSkipped:
			l.log.Log("%s", res.Mismatch.Diagnostic())
			slog.Warn("skipped entry point", "file", file, "call", inv.Call(),
				"supplied", res.Mismatch.Supplied, "declared", res.Mismatch.Declared)
		case m.InvocationFailed:
			l.log.LogWithDate("Exception caught while calling %s in %s: %v", inv.Call(), file, res.Err)
			slog.Error("entry point failed", "file", file, "call", inv.Call(), "error", res.Err)
		}

		result.Invocations = append(result.Invocations, res)
	}

	return result
}

// open loads a plugin exposing entry and reads its exports, recovering any
// panic raised along the way.
func (l *loader) open(path m.Path, entry string) (version string, types []m.PluginType, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while opening: %v", r)
		}
	}()

	plugin, err := l.opener.Open(path, entry)
	if err != nil {
		return "", nil, err
	}

	if plugin == nil {
		return "", nil, errors.New("opener returned no plugin")
	}

	return plugin.Version(), plugin.Types(), nil
}

func (l *loader) LoadAll(dir m.Path, opts LoadOptions) m.LoadReport {
	started := l.now()
	report := m.LoadReport{Dir: dir}

	if err := l.fs.MkdirAll(dir); err != nil {
		slog.Error("failed to create plugin directory", "dir", dir, "error", err)
		return report
	}

	if cfg, err := adapter.ReadLoaderConfig(l.fs, string(dir)); err != nil {
		slog.Warn("ignoring loader config", "dir", dir, "error", err)
	} else {
		opts.Ignore = append(opts.Ignore, cfg.Ignore...)
		if cfg.Entry != "" {
			opts.EntryMethod = cfg.Entry
		}

		if cfg.Type != "" {
			opts.TypeName = cfg.Type
		}
	}

	l.log = pkg.NewModLog("")
	if opts.LogName != "" {
		l.log = pkg.NewModLog(string(l.fs.JoinPath(string(dir), opts.LogName)))
	}

	defer func() {
		_ = l.log.Close()
		l.log = pkg.NewModLog("")
	}()

	l.log.Reset(fmt.Sprintf("modhook loader -- %s", dir))
	l.log.LogWithDate("Loading plugins from %s", dir)

	files, err := l.fs.ListFiles(dir)
	if err != nil {
		slog.Error("failed to list plugin directory", "dir", dir, "error", err)
		return report
	}

	ignore := append(append([]string(nil), DefaultIgnoredFiles...), opts.Ignore...)

	for _, path := range files {
		name := filepath.Base(string(path))
		if name == opts.LogName || name == adapter.LoaderConfigFile || !l.opener.Supports(path) || ignored(name, ignore) {
			continue
		}

		l.log.Log("Loading %s", name)
		report.Plugins = append(report.Plugins, l.LoadPlugin(path, opts))
	}

	report.Elapsed = l.now().Sub(started)
	l.log.LogWithDate("Done. Took %.2f seconds", report.Elapsed.Seconds())
	slog.Info("loaded plugins", "dir", dir, "count", len(report.Plugins), "elapsed", report.Elapsed)

	return report
}

func ignored(name string, ignore []string) bool {
	for _, candidate := range ignore {
		if strings.EqualFold(name, candidate) {
			return true
		}
	}

	return false
}
