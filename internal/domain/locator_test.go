package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modhook.dev/pkg/modhook/internal/fixture"
	m "modhook.dev/pkg/modhook/internal/model"
)

func TestLocate(t *testing.T) {
	t.Run("iterator resolves to the nested step method", func(t *testing.T) {
		mod := fixture.HostModule()

		located, err := Locate(mod, testTarget(), DefaultLocatorOptions())
		require.NoError(t, err)

		assert.Equal(t, fixture.HookMethod, located.Declared.Name)
		assert.Equal(t, "MoveNext", located.Method.Name)
		assert.Equal(t, fixture.HostType+"/"+fixture.IteratorType, located.Method.DeclaringType.FullName())
		assert.IsType(t, StateMachineBody{}, located.Strategy)
		assert.Equal(t, 12, located.Body().Len())
	})

	t.Run("void method is patched directly", func(t *testing.T) {
		mod := fixture.DirectHostModule()

		located, err := Locate(mod, testTarget(), DefaultLocatorOptions())
		require.NoError(t, err)

		assert.Same(t, located.Declared, located.Method)
		assert.Equal(t, "direct", located.Strategy.String())
	})

	tests := []struct {
		name   string
		mutate func(mod *m.Module)
		target HookTarget
		reason string
	}{
		{
			name:   "missing type",
			mutate: func(*m.Module) {},
			target: HookTarget{Type: "Host.Missing", Method: fixture.HookMethod},
			reason: "type not found",
		},
		{
			name:   "missing method",
			mutate: func(*m.Module) {},
			target: HookTarget{Type: fixture.HostType, Method: "Awake"},
			reason: "method not found",
		},
		{
			name: "no generated nested type",
			mutate: func(mod *m.Module) {
				mod.Type(fixture.HostType).Nested = nil
			},
			target: testTarget(),
			reason: "no nested type",
		},
		{
			name: "ambiguous generated nested type",
			mutate: func(mod *m.Module) {
				mod.Type(fixture.HostType).AddNested(&m.TypeDef{Name: "<Start>c__Iterator1"})
			},
			target: testTarget(),
			reason: "ambiguous state machine",
		},
		{
			name: "nested type without step method",
			mutate: func(mod *m.Module) {
				mod.Type(fixture.HostType).Nested[0].Methods = nil
			},
			target: testTarget(),
			reason: "has no MoveNext method",
		},
		{
			name: "abstract method has no body",
			mutate: func(*m.Module) {},
			target: HookTarget{Type: fixture.SerializerType, Method: "Dispose"},
			reason: "has no body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := fixture.HostModule()
			tt.mutate(mod)

			_, err := Locate(mod, tt.target, DefaultLocatorOptions())

			var notFound *m.HookTargetNotFoundError
			require.True(t, errors.As(err, &notFound), "got %v", err)
			assert.Contains(t, notFound.Reason, tt.reason)
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	opts := DefaultLocatorOptions()

	iterator := &m.MethodDef{Name: "Start", ReturnType: "System.Collections.IEnumerator"}
	assert.IsType(t, StateMachineBody{}, SelectStrategy(iterator, opts))

	plain := &m.MethodDef{Name: "Start", ReturnType: m.VoidType}
	assert.IsType(t, DirectBody{}, SelectStrategy(plain, opts))

	generic := &m.MethodDef{Name: "Start", ReturnType: "System.Collections.Generic.IEnumerable"}
	assert.IsType(t, DirectBody{}, SelectStrategy(generic, opts))

	opts.StateMachineReturns = append(opts.StateMachineReturns, "IEnumerable")
	assert.IsType(t, StateMachineBody{}, SelectStrategy(generic, opts))
}

func TestScanAnchor(t *testing.T) {
	t.Run("last matching call wins", func(t *testing.T) {
		located, err := Locate(fixture.HostModule(), testTarget(), DefaultLocatorOptions())
		require.NoError(t, err)

		anchor, ok := ScanAnchor(located.Body(), fixture.Anchor)
		require.True(t, ok)

		assert.Equal(t, 6, anchor.Index)
		assert.Equal(t, "PrepareSerializer", anchor.Call.Name)
	})

	t.Run("only call instructions match", func(t *testing.T) {
		body := m.NewBody(1,
			m.Instruction{OpCode: m.OpCall, Method: fixture.SerializerRef("PrepareSerializer")},
			m.Instruction{OpCode: m.OpNewObj, Method: fixture.SerializerRef("PrepareSerializerFactory")},
			m.Instruction{OpCode: m.OpCallVirt, Method: fixture.SerializerRef("PrepareSerializerVirtual")},
			m.Instruction{OpCode: m.OpLdStr, Str: "PrepareSerializer"},
			m.Instruction{OpCode: m.OpRet},
		)

		anchor, ok := ScanAnchor(body, fixture.Anchor)
		require.True(t, ok)
		assert.Equal(t, 0, anchor.Index)
	})

	t.Run("no match", func(t *testing.T) {
		body := m.NewBody(0, m.Instruction{OpCode: m.OpRet})

		_, ok := ScanAnchor(body, fixture.Anchor)
		assert.False(t, ok)
	})
}
