package domain

import (
	"strconv"
	"strings"

	m "modhook.dev/pkg/modhook/internal/model"
)

// DetectConfig names the hook signature, its expected location and the
// version marker.
type DetectConfig struct {
	Hook         m.MethodRef
	Target       HookTarget
	Namespace    string
	VersionType  string
	VersionField string
}

// Detect scans every method body, nested types included, for a call whose
// signature equals the hook exactly. A hit inside a method named after the
// configured target is current; any other hit is legacy. The scan ends early
// only once a current hit and the version marker are both known.
func Detect(mod *m.Module, cfg DetectConfig) m.Detection {
	var det m.Detection

	signature := cfg.Hook.String()

	mod.Walk(func(t *m.TypeDef) bool {
		if cfg.Namespace != "" && !inNamespace(t, cfg.Namespace) {
			return true
		}

		if !det.HasVersion && t.DeclaringType == nil && t.Name == cfg.VersionType {
			if field := t.Field(cfg.VersionField); field != nil && field.Constant != nil {
				det.HostVersion = constantString(field.Constant)
				det.HasVersion = true
			}
		}

		if det.State.Kind != m.CurrentInjection {
			for _, md := range t.Methods {
				if md.Body == nil || !callsSignature(md.Body, signature) {
					continue
				}

				location := md.FullName()
				if isCurrentLocation(location, cfg.Target) {
					det.State = m.InjectionState{Kind: m.CurrentInjection, Location: location}
					break
				}

				if det.State.Kind == m.NotInjected {
					det.State = m.InjectionState{Kind: m.LegacyInjection, Location: location}
				}
			}
		}

		return !(det.State.Kind == m.CurrentInjection && det.HasVersion)
	})

	return det
}

func callsSignature(body *m.Body, signature string) bool {
	for _, ins := range body.All() {
		if ins.IsCall() && ins.Method.String() == signature {
			return true
		}
	}

	return false
}

func isCurrentLocation(location string, target HookTarget) bool {
	return strings.Contains(location, target.Type) && strings.Contains(location, target.Method)
}

// inNamespace reports whether t is under namespace. Types in the global
// namespace always pass.
func inNamespace(t *m.TypeDef, namespace string) bool {
	ns := t.Namespace()
	if ns == "" {
		return true
	}

	return ns == namespace || strings.HasPrefix(ns, namespace+".")
}

func constantString(c *m.Constant) string {
	if c.Kind == m.ConstInt {
		return strconv.FormatInt(c.Int, 10)
	}

	return c.Str
}
