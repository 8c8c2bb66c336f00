// Package fixture builds small host and loader modules shaped like the ones
// modhook patches in the field. Tests across packages share them.
package fixture

import m "modhook.dev/pkg/modhook/internal/model"

// Names used by the fixture modules.
const (
	HostModuleName   = "Host"
	HostType         = "Host.Main"
	HookMethod       = "Start"
	IteratorType     = "<Start>c__Iterator0"
	SerializerType   = "Host.Serializer"
	Anchor           = "PrepareSerializer"
	LoaderModuleName = "ModLoader"
	LoaderType       = "ModLoader.Loader"
	LoaderMethod     = "Init"
	VersionType      = "VersionInfo"
	VersionField     = "CURRENT_VERSION_NUMBER"
	HostVersion      = "1.2.3"
)

// HookRef is the reference the patcher inserts.
func HookRef() m.MethodRef {
	return m.MethodRef{
		Scope:         LoaderModuleName,
		DeclaringType: LoaderType,
		Name:          LoaderMethod,
		ReturnType:    m.VoidType,
	}
}

// SerializerRef references a method on the serializer type.
func SerializerRef(name string) *m.MethodRef {
	return &m.MethodRef{
		Scope:         HostModuleName,
		DeclaringType: SerializerType,
		Name:          name,
		ReturnType:    m.VoidType,
	}
}

// HostModule returns a module whose hook method is an iterator: the real
// work happens in the nested state machine's MoveNext. The step body calls
// PrepareSerializerCache first and PrepareSerializer last.
func HostModule() *m.Module {
	mod := &m.Module{Name: HostModuleName, References: []string{"System"}}

	main := mod.AddType(&m.TypeDef{Name: HostType, Flags: m.TypePublic})
	main.AddMethod(&m.MethodDef{
		Name:       HookMethod,
		ReturnType: "System.Collections.IEnumerator",
		Flags:      m.MethodPublic,
		Body: m.NewBody(2,
			m.Instruction{OpCode: m.OpNewObj, Method: &m.MethodRef{
				Scope:         HostModuleName,
				DeclaringType: HostType + "/" + IteratorType,
				Name:          ".ctor",
				ReturnType:    m.VoidType,
			}},
			m.Instruction{OpCode: m.OpRet},
		),
	})
	main.AddMethod(&m.MethodDef{
		Name:       "Update",
		ReturnType: m.VoidType,
		Flags:      m.MethodPublic,
		Body: m.NewBody(1,
			m.Instruction{OpCode: m.OpCall, Method: SerializerRef("Tick")},
			m.Instruction{OpCode: m.OpRet},
		),
	})

	iterator := main.AddNested(&m.TypeDef{Name: IteratorType, Flags: m.TypeSealed | m.TypeCompilerGenerated})
	iterator.Fields = append(iterator.Fields, &m.FieldDef{Name: "$PC", Type: "System.Int32"})
	iterator.AddMethod(&m.MethodDef{
		Name:       ".ctor",
		ReturnType: m.VoidType,
		Flags:      m.MethodPublic,
		Body:       m.NewBody(1, m.Instruction{OpCode: m.OpRet}),
	})

	step := m.NewBody(3,
		m.Instruction{OpCode: m.OpLdArg, Int: 0},
		m.Instruction{OpCode: m.OpLdFld, Str: IteratorType + "::$PC"},
		m.Instruction{OpCode: m.OpSwitch, Targets: []m.InstrID{3, 8}},
		m.Instruction{OpCode: m.OpCall, Method: SerializerRef("PrepareSerializerCache")},
		m.Instruction{OpCode: m.OpLdStr, Str: "loading"},
		m.Instruction{OpCode: m.OpPop},
		m.Instruction{OpCode: m.OpCall, Method: SerializerRef("PrepareSerializer")},
		m.Instruction{OpCode: m.OpBr, Target: 10},
		m.Instruction{OpCode: m.OpLdcI4, Int: 0},
		m.Instruction{OpCode: m.OpRet},
		m.Instruction{OpCode: m.OpLdcI4, Int: 1},
		m.Instruction{OpCode: m.OpRet},
	)
	step.Handlers = []m.ExceptionHandler{{
		Kind:         m.HandlerCatch,
		TryStart:     3,
		TryEnd:       7,
		HandlerStart: 8,
		HandlerEnd:   m.EndOfBody,
		CatchType:    "System.Exception",
	}}
	iterator.AddMethod(&m.MethodDef{
		Name:       "MoveNext",
		ReturnType: "System.Boolean",
		Flags:      m.MethodPublic | m.MethodVirtual,
		Body:       step,
	})

	serializer := mod.AddType(&m.TypeDef{Name: SerializerType, Flags: m.TypePublic})
	for _, name := range []string{"PrepareSerializerCache", "PrepareSerializer", "Tick"} {
		serializer.AddMethod(&m.MethodDef{
			Name:       name,
			ReturnType: m.VoidType,
			Flags:      m.MethodPublic | m.MethodStatic,
			Body:       m.NewBody(0, m.Instruction{OpCode: m.OpRet}),
		})
	}

	serializer.AddMethod(&m.MethodDef{
		Name:       "Dispose",
		ReturnType: m.VoidType,
		Flags:      m.MethodPublic | m.MethodAbstract,
	})

	version := mod.AddType(&m.TypeDef{Name: VersionType, Flags: m.TypePublic | m.TypeSealed})
	version.Fields = append(version.Fields, &m.FieldDef{
		Name:     VersionField,
		Type:     "System.String",
		Flags:    m.FieldPublic | m.FieldStatic | m.FieldLiteral,
		Constant: &m.Constant{Kind: m.ConstString, Str: HostVersion},
	})

	return mod
}

// DirectHostModule returns a module whose hook method is an ordinary void
// method calling PrepareSerializer directly.
func DirectHostModule() *m.Module {
	mod := &m.Module{Name: HostModuleName}

	main := mod.AddType(&m.TypeDef{Name: HostType, Flags: m.TypePublic})
	main.AddMethod(&m.MethodDef{
		Name:       HookMethod,
		ReturnType: m.VoidType,
		Flags:      m.MethodPublic,
		Body: m.NewBody(1,
			m.Instruction{OpCode: m.OpCall, Method: SerializerRef("PrepareSerializer")},
			m.Instruction{OpCode: m.OpRet},
		),
	})

	return mod
}

// LoaderModule returns the plugin-loader module declaring the hook method.
func LoaderModule() *m.Module {
	mod := &m.Module{Name: LoaderModuleName, References: []string{"System"}}

	loader := mod.AddType(&m.TypeDef{Name: LoaderType, Flags: m.TypePublic | m.TypeAbstract | m.TypeSealed})
	loader.AddMethod(&m.MethodDef{
		Name:       LoaderMethod,
		ReturnType: m.VoidType,
		Flags:      m.MethodPublic | m.MethodStatic,
		Body:       m.NewBody(0, m.Instruction{OpCode: m.OpRet}),
	})

	return mod
}

// CountCalls counts call instructions whose signature equals ref, across
// every method of the module.
func CountCalls(mod *m.Module, ref m.MethodRef) int {
	count := 0

	mod.Walk(func(t *m.TypeDef) bool {
		for _, md := range t.Methods {
			if md.Body == nil {
				continue
			}

			for _, ins := range md.Body.All() {
				if ins.IsCall() && ins.Method.Equal(ref) {
					count++
				}
			}
		}

		return true
	})

	return count
}
