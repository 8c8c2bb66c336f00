package model

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports a structurally malformed module file.
type ParseError struct {
	Path   Path
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed module at offset %d: %v", e.Offset, e.Err)
	}

	return fmt.Sprintf("malformed module %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError reports a failure to serialise or store a module.
type WriteError struct {
	Path Path
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// HookTargetNotFoundError reports an unresolvable type, method or stepping body.
type HookTargetNotFoundError struct {
	Type   string
	Method string
	Reason string
}

func (e *HookTargetNotFoundError) Error() string {
	return fmt.Sprintf("hook target %s::%s not found: %s", e.Type, e.Method, e.Reason)
}

// AnchorNotFoundError reports that no call matched the anchor pattern.
type AnchorNotFoundError struct {
	Pattern string
	Method  string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("could not locate injection point: no call matching %q in %s", e.Pattern, e.Method)
}

// BackupMissingError reports that restore has no source.
type BackupMissingError struct {
	Path Path
}

func (e *BackupMissingError) Error() string {
	return fmt.Sprintf("backup %s not found; verify the install files or reinstall the host application", e.Path)
}

// BackupCorruptError reports a backup that already contains the hook.
type BackupCorruptError struct {
	Path  Path
	State InjectionState
}

func (e *BackupCorruptError) Error() string {
	return fmt.Sprintf("backup %s is already injected (%s at %s); verify the install files or reinstall the host application",
		e.Path, e.State.Kind, e.State.Location)
}

// VersionMismatchError reports a host version that does not satisfy the requirement.
type VersionMismatchError struct {
	Required string
	Actual   string
	Message  string
}

func (e *VersionMismatchError) Error() string {
	msg := fmt.Sprintf("host version %q does not match required %q", e.Actual, e.Required)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

// TargetMissingError reports a missing directory or host module.
type TargetMissingError struct {
	Path Path
}

func (e *TargetMissingError) Error() string {
	return fmt.Sprintf("target %s not found; point --dir at the directory holding the host module", e.Path)
}

// LoaderMissingError reports a missing plugin-loader module.
type LoaderMissingError struct {
	Path Path
}

func (e *LoaderMissingError) Error() string {
	return fmt.Sprintf("plugin loader module %s not found next to the host module", e.Path)
}

// UsageError wraps invalid command-line input.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// PluginLoadError is recorded, never returned, when a plugin fails to open or
// its entry point panics or fails.
type PluginLoadError struct {
	File string
	Call string
	Err  error
}

func (e *PluginLoadError) Error() string {
	if e.Call == "" {
		return fmt.Sprintf("failed to load plugin %s: %v", e.File, e.Err)
	}

	return fmt.Sprintf("plugin %s: %s failed: %v", e.File, e.Call, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }

// ParameterMismatch describes why an entry point was skipped.
type ParameterMismatch struct {
	Call     string
	Supplied []string
	Declared []string
	NilArgs  bool
}

// Diagnostic renders the mismatch on several tab-indented lines.
func (p *ParameterMismatch) Diagnostic() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "provided params don't match %s\n", p.Call)
	sb.WriteString("\tPassed in params:\n")

	if p.NilArgs {
		sb.WriteString("\t\t'args' is nil\n")
	}

	for _, s := range p.Supplied {
		sb.WriteString("\t\t" + s + "\n")
	}

	sb.WriteString("\tMethod params:\n")

	for _, d := range p.Declared {
		sb.WriteString("\t\t" + d + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (p *ParameterMismatch) Error() string {
	return "provided params don't match " + p.Call
}

// ErrNotSupported is returned by plugin openers for formats this build cannot load.
var ErrNotSupported = errors.New("plugin format not supported by this build")
