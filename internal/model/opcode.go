package model

import "fmt"

// OpCode identifies an instruction. Values are the on-disk encoding.
type OpCode uint8

// OperandKind describes how an opcode's operand is stored.
type OperandKind uint8

// Operand kinds.
const (
	OperandNone OperandKind = iota
	OperandInt
	OperandString
	OperandToken
	OperandMethod
	OperandBranch
	OperandSwitch
)

// Category groups opcodes by how the patcher treats them.
type Category uint8

// Categories. Everything that is not a direct call is carried through
// untouched.
const (
	CategoryOther Category = iota
	CategoryCall
)

// Instruction set.
const (
	OpNop        OpCode = 0x00
	OpRet        OpCode = 0x01
	OpPop        OpCode = 0x02
	OpDup        OpCode = 0x03
	OpLdArg      OpCode = 0x10
	OpLdLoc      OpCode = 0x11
	OpStLoc      OpCode = 0x12
	OpLdcI4      OpCode = 0x13
	OpLdcI8      OpCode = 0x14
	OpLdStr      OpCode = 0x15
	OpLdNull     OpCode = 0x16
	OpLdFld      OpCode = 0x20
	OpStFld      OpCode = 0x21
	OpLdsFld     OpCode = 0x22
	OpStsFld     OpCode = 0x23
	OpCall       OpCode = 0x30
	OpCallVirt   OpCode = 0x31
	OpNewObj     OpCode = 0x32
	OpBr         OpCode = 0x40
	OpBrTrue     OpCode = 0x41
	OpBrFalse    OpCode = 0x42
	OpBeq        OpCode = 0x43
	OpBlt        OpCode = 0x44
	OpLeave      OpCode = 0x45
	OpSwitch     OpCode = 0x46
	OpThrow      OpCode = 0x50
	OpEndFinally OpCode = 0x51
	OpAdd        OpCode = 0x60
	OpSub        OpCode = 0x61
	OpMul        OpCode = 0x62
	OpCeq        OpCode = 0x63
	OpCastClass  OpCode = 0x70
	OpIsInst     OpCode = 0x71
)

type opInfo struct {
	name    string
	operand OperandKind
}

var opTable = map[OpCode]opInfo{
	OpNop:        {"nop", OperandNone},
	OpRet:        {"ret", OperandNone},
	OpPop:        {"pop", OperandNone},
	OpDup:        {"dup", OperandNone},
	OpLdArg:      {"ldarg", OperandInt},
	OpLdLoc:      {"ldloc", OperandInt},
	OpStLoc:      {"stloc", OperandInt},
	OpLdcI4:      {"ldc.i4", OperandInt},
	OpLdcI8:      {"ldc.i8", OperandInt},
	OpLdStr:      {"ldstr", OperandString},
	OpLdNull:     {"ldnull", OperandNone},
	OpLdFld:      {"ldfld", OperandToken},
	OpStFld:      {"stfld", OperandToken},
	OpLdsFld:     {"ldsfld", OperandToken},
	OpStsFld:     {"stsfld", OperandToken},
	OpCall:       {"call", OperandMethod},
	OpCallVirt:   {"callvirt", OperandMethod},
	OpNewObj:     {"newobj", OperandMethod},
	OpBr:         {"br", OperandBranch},
	OpBrTrue:     {"brtrue", OperandBranch},
	OpBrFalse:    {"brfalse", OperandBranch},
	OpBeq:        {"beq", OperandBranch},
	OpBlt:        {"blt", OperandBranch},
	OpLeave:      {"leave", OperandBranch},
	OpSwitch:     {"switch", OperandSwitch},
	OpThrow:      {"throw", OperandNone},
	OpEndFinally: {"endfinally", OperandNone},
	OpAdd:        {"add", OperandNone},
	OpSub:        {"sub", OperandNone},
	OpMul:        {"mul", OperandNone},
	OpCeq:        {"ceq", OperandNone},
	OpCastClass:  {"castclass", OperandToken},
	OpIsInst:     {"isinst", OperandToken},
}

// Known reports whether the opcode belongs to the instruction set.
func (op OpCode) Known() bool {
	_, ok := opTable[op]
	return ok
}

// Operand returns the operand kind of a known opcode.
func (op OpCode) Operand() OperandKind {
	return opTable[op].operand
}

// Category returns CategoryCall for direct calls only.
func (op OpCode) Category() Category {
	if op == OpCall {
		return CategoryCall
	}

	return CategoryOther
}

func (op OpCode) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}

	return fmt.Sprintf("op(0x%02x)", uint8(op))
}
