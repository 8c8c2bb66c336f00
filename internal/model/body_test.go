package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBody_InsertAfterKeepsBranchTargets(t *testing.T) {
	body := NewBody(2,
		Instruction{OpCode: OpLdArg, Int: 0},
		Instruction{OpCode: OpBrTrue, Target: 3},
		Instruction{OpCode: OpNop},
		Instruction{OpCode: OpRet},
	)
	body.Handlers = []ExceptionHandler{{Kind: HandlerFinally, TryStart: 0, TryEnd: 2, HandlerStart: 2, HandlerEnd: EndOfBody}}

	id, err := body.InsertAfter(0, Instruction{OpCode: OpPop})
	require.NoError(t, err)
	assert.Equal(t, InstrID(4), id)
	assert.Equal(t, 5, body.Len())
	assert.Equal(t, OpPop, body.At(1).OpCode)

	branch := body.At(2)
	require.Equal(t, OpBrTrue, branch.OpCode)

	pos, ok := body.Position(branch.Target)
	require.True(t, ok)
	assert.Equal(t, 4, pos)
	assert.Equal(t, OpRet, body.At(pos).OpCode)

	tryEnd, ok := body.Position(body.Handlers[0].TryEnd)
	require.True(t, ok)
	assert.Equal(t, 3, tryEnd)

	require.NoError(t, body.Validate())
}

func TestBody_InsertAfterOutOfRange(t *testing.T) {
	body := NewBody(1, Instruction{OpCode: OpRet})

	_, err := body.InsertAfter(1, Instruction{OpCode: OpNop})
	require.Error(t, err)

	_, err = body.InsertAfter(-1, Instruction{OpCode: OpNop})
	require.Error(t, err)
	assert.Equal(t, 1, body.Len())
}

func TestBody_Validate(t *testing.T) {
	tests := []struct {
		name string
		body *Body
	}{
		{
			name: "dangling branch",
			body: NewBody(1, Instruction{OpCode: OpBr, Target: 7}),
		},
		{
			name: "call without operand",
			body: NewBody(1, Instruction{OpCode: OpCall}),
		},
		{
			name: "unknown opcode",
			body: NewBody(1, Instruction{OpCode: OpCode(0xfe)}),
		},
		{
			name: "dangling switch",
			body: NewBody(1, Instruction{OpCode: OpSwitch, Targets: []InstrID{0, 9}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.body.Validate())
		})
	}
}

func TestBody_AllStopsEarly(t *testing.T) {
	body := NewBody(1, Instruction{OpCode: OpNop}, Instruction{OpCode: OpNop}, Instruction{OpCode: OpRet})

	seen := 0
	for range body.All() {
		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
}

func TestOpCode_Category(t *testing.T) {
	assert.Equal(t, CategoryCall, OpCall.Category())
	assert.Equal(t, CategoryOther, OpCallVirt.Category())
	assert.Equal(t, CategoryOther, OpNewObj.Category())
	assert.Equal(t, "call", OpCall.String())
	assert.Equal(t, "op(0xfe)", OpCode(0xfe).String())
	assert.False(t, OpCode(0xfe).Known())
}
