package model

import (
	"reflect"
	"time"
)

// PluginType is one type exported by an opened plugin.
type PluginType struct {
	FullName string
	Methods  []PluginMethod
}

// PluginMethod is a callable exposed by a plugin type. Func takes exactly
// the values listed in Params; any receiver is already bound.
type PluginMethod struct {
	Name   string
	Public bool
	Static bool
	Params []reflect.Type
	Func   reflect.Value
}

// InvocationStatus is the outcome of one entry-point candidate.
type InvocationStatus int

// Invocation statuses.
const (
	InvocationCalled InvocationStatus = iota
	InvocationSkipped
	InvocationFailed
)

func (s InvocationStatus) String() string {
	switch s {
	case InvocationCalled:
		return "called"
	case InvocationSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// InvocationResult records what happened to one candidate.
type InvocationResult struct {
	Type     string
	Method   string
	Status   InvocationStatus
	Mismatch *ParameterMismatch
	Err      error
}

// PluginResult aggregates the outcome for one plugin file.
type PluginResult struct {
	File        string
	Version     string
	Invocations []InvocationResult
	Err         error
}

// OK reports whether the plugin opened and at least one entry point ran
// without failing.
func (r PluginResult) OK() bool {
	if r.Err != nil {
		return false
	}

	called := false

	for _, inv := range r.Invocations {
		switch inv.Status {
		case InvocationFailed:
			return false
		case InvocationCalled:
			called = true
		}
	}

	return called
}

// LoadReport is produced by loading every plugin in a directory.
type LoadReport struct {
	Dir     Path
	Plugins []PluginResult
	Elapsed time.Duration
}
