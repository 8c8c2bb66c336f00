package domain

import (
	"fmt"
	"log/slog"

	"modhook.dev/pkg/modhook/internal/adapter"
	m "modhook.dev/pkg/modhook/internal/model"
)

// PatchConfig describes where the hook call goes.
type PatchConfig struct {
	Target  HookTarget
	Anchor  string
	Locator LocatorOptions
}

// PatchPlan is a located insertion point, computed before anything on disk
// changes.
type PatchPlan struct {
	Located Located
	Anchor  Anchor
}

// Patcher inserts the hook call into a host module and writes it back.
type Patcher interface {
	// Prepare resolves the body and anchor without mutating the module.
	Prepare(mod *m.Module) (PatchPlan, error)

	// Apply inserts the hook after the planned anchor and saves the module to
	// path. On failure the file at path is unchanged.
	Apply(mod *m.Module, plan PatchPlan, hook m.MethodRef, path m.Path) error
}

type patcher struct {
	modules adapter.ModuleFileAdapter
	config  PatchConfig
}

// NewPatcher constructs a Patcher.
func NewPatcher(modules adapter.ModuleFileAdapter, config PatchConfig) Patcher {
	return &patcher{modules: modules, config: config}
}

func (p *patcher) Prepare(mod *m.Module) (PatchPlan, error) {
	located, err := Locate(mod, p.config.Target, p.config.Locator)
	if err != nil {
		return PatchPlan{}, err
	}

	anchor, ok := ScanAnchor(located.Body(), p.config.Anchor)
	if !ok {
		return PatchPlan{}, &m.AnchorNotFoundError{Pattern: p.config.Anchor, Method: located.Method.FullName()}
	}

	slog.Debug("located injection point",
		"method", located.Method.FullName(),
		"strategy", located.Strategy.String(),
		"anchor", anchor.Call.String(),
		"index", anchor.Index)

	return PatchPlan{Located: located, Anchor: anchor}, nil
}

func (p *patcher) Apply(mod *m.Module, plan PatchPlan, hook m.MethodRef, path m.Path) error {
	if _, err := InsertHookCall(plan.Located.Body(), plan.Anchor.Index, hook); err != nil {
		return &m.WriteError{Path: path, Err: err}
	}

	mod.AddReference(hook.Scope)

	if err := p.modules.Save(mod, path); err != nil {
		slog.Error("failed to save patched module", "path", path, "error", err)
		return err
	}

	slog.Info("inserted hook", "hook", hook.String(), "method", plan.Located.Method.FullName(), "after", plan.Anchor.Index)

	return nil
}

// InsertHookCall places a parameterless call to hook directly after the
// instruction at anchor. The hook must return void so nothing is left on the
// evaluation stack.
func InsertHookCall(body *m.Body, anchor int, hook m.MethodRef) (m.InstrID, error) {
	if hook.ReturnType != m.VoidType || len(hook.Params) != 0 {
		return 0, fmt.Errorf("hook %s must be a parameterless void method", hook.String())
	}

	ref := hook

	return body.InsertAfter(anchor, m.Instruction{OpCode: m.OpCall, Method: &ref})
}

// ResolveHook finds the hook method in the plugin-loader module and checks it
// against the expected signature.
func ResolveHook(loader *m.Module, expected m.MethodRef) (m.MethodRef, error) {
	notFound := func(reason string) error {
		return &m.HookTargetNotFoundError{Type: expected.DeclaringType, Method: expected.Name, Reason: reason}
	}

	typ := loader.Type(expected.DeclaringType)
	if typ == nil {
		return m.MethodRef{}, notFound("type not found in " + loader.Name)
	}

	methods := typ.MethodsNamed(expected.Name)
	if len(methods) != 1 {
		return m.MethodRef{}, notFound(fmt.Sprintf("expected exactly one method, found %d", len(methods)))
	}

	method := methods[0]
	if !method.IsStatic() || !method.IsPublic() {
		return m.MethodRef{}, notFound("entry method must be public and static")
	}

	ref := m.RefTo(loader, method)
	if !ref.Equal(expected) {
		return m.MethodRef{}, notFound(fmt.Sprintf("signature %s does not match %s", ref.String(), expected.String()))
	}

	return ref, nil
}
