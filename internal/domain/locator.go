// Package domain implements the patching pipeline and the plugin loader.
package domain

import (
	"fmt"
	"strings"

	m "modhook.dev/pkg/modhook/internal/model"
)

// HookTarget names the method whose body receives the hook call.
type HookTarget struct {
	Type   string
	Method string
}

// LocatorOptions tune how compiler-generated state machines are recognised.
type LocatorOptions struct {
	// StateMachineReturns lists short return-type names that mark a method as
	// lowered into a nested state machine.
	StateMachineReturns []string
	// Marker must appear in the generated nested type's name.
	Marker string
	// StepMethod is the state machine's method that holds the real body.
	StepMethod string
}

// DefaultLocatorOptions match iterator methods lowered by the host's compiler.
func DefaultLocatorOptions() LocatorOptions {
	return LocatorOptions{
		StateMachineReturns: []string{"IEnumerator"},
		Marker:              "Iterator",
		StepMethod:          "MoveNext",
	}
}

// Located is the resolved patch site.
type Located struct {
	Declared *m.MethodDef
	Method   *m.MethodDef
	Strategy BodyStrategy
}

// Body is the body to patch.
func (l Located) Body() *m.Body { return l.Method.Body }

// BodyStrategy maps a declared method to the method that owns its executable
// body.
type BodyStrategy interface {
	Resolve(method *m.MethodDef) (*m.MethodDef, error)
	String() string
}

// DirectBody patches the declared method itself.
type DirectBody struct{}

// Resolve returns the method unchanged.
func (DirectBody) Resolve(method *m.MethodDef) (*m.MethodDef, error) {
	return method, nil
}

func (DirectBody) String() string { return "direct" }

// StateMachineBody finds the nested type generated for the method and uses
// its step method. The nested type is matched by name substring, which is a
// heuristic: zero or several matches fail rather than guess.
type StateMachineBody struct {
	Marker     string
	StepMethod string
}

// Resolve locates the unique generated nested type and its step method.
func (s StateMachineBody) Resolve(method *m.MethodDef) (*m.MethodDef, error) {
	host := method.DeclaringType
	if host == nil {
		return nil, fmt.Errorf("method %s has no declaring type", method.Name)
	}

	var candidates []*m.TypeDef

	for _, nested := range host.Nested {
		if strings.Contains(nested.Name, method.Name) && strings.Contains(nested.Name, s.Marker) {
			candidates = append(candidates, nested)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no nested type containing %q and %q", method.Name, s.Marker)
	case 1:
	default:
		names := make([]string, 0, len(candidates))
		for _, c := range candidates {
			names = append(names, c.Name)
		}

		return nil, fmt.Errorf("ambiguous state machine: %s", strings.Join(names, ", "))
	}

	step := candidates[0].Method(s.StepMethod)
	if step == nil {
		return nil, fmt.Errorf("%s has no %s method", candidates[0].FullName(), s.StepMethod)
	}

	return step, nil
}

func (s StateMachineBody) String() string { return "state machine (" + s.StepMethod + ")" }

// SelectStrategy picks the body strategy from the declared return type.
func SelectStrategy(method *m.MethodDef, opts LocatorOptions) BodyStrategy {
	short := method.ReturnType
	if idx := strings.LastIndexByte(short, '.'); idx >= 0 {
		short = short[idx+1:]
	}

	for _, ret := range opts.StateMachineReturns {
		if short == ret {
			return StateMachineBody{Marker: opts.Marker, StepMethod: opts.StepMethod}
		}
	}

	return DirectBody{}
}

// Locate resolves the hook target to the body that must be patched.
func Locate(mod *m.Module, target HookTarget, opts LocatorOptions) (Located, error) {
	notFound := func(reason string) error {
		return &m.HookTargetNotFoundError{Type: target.Type, Method: target.Method, Reason: reason}
	}

	typ := mod.Type(target.Type)
	if typ == nil {
		return Located{}, notFound("type not found")
	}

	declared := typ.Method(target.Method)
	if declared == nil {
		return Located{}, notFound("method not found")
	}

	strategy := SelectStrategy(declared, opts)

	method, err := strategy.Resolve(declared)
	if err != nil {
		return Located{}, notFound(err.Error())
	}

	if method.Body == nil {
		return Located{}, notFound(method.FullName() + " has no body")
	}

	return Located{Declared: declared, Method: method, Strategy: strategy}, nil
}
