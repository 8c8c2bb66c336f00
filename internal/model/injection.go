package model

// InjectionKind classifies whether a module carries the hook call.
type InjectionKind int

// Injection kinds.
const (
	NotInjected InjectionKind = iota
	CurrentInjection
	LegacyInjection
)

func (k InjectionKind) String() string {
	switch k {
	case CurrentInjection:
		return "current"
	case LegacyInjection:
		return "legacy"
	default:
		return "not injected"
	}
}

// InjectionState is computed by scanning a module and is never persisted.
// Location is the full name of the method holding the hook call.
type InjectionState struct {
	Kind     InjectionKind
	Location string
}

// Injected reports whether the hook call was found anywhere.
func (s InjectionState) Injected() bool { return s.Kind != NotInjected }

// Detection is the outcome of a detector scan.
type Detection struct {
	State       InjectionState
	HostVersion string
	HasVersion  bool
}
