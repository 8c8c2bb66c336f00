package model

import (
	"fmt"
	"iter"
	"slices"
)

// InstrID is a stable handle into a body's instruction arena. Ids never move
// when instructions are inserted, so branch operands and handler ranges keep
// pointing at the same instruction.
type InstrID int

// EndOfBody marks a handler range that runs to the end of the body.
const EndOfBody InstrID = -1

// Instruction is one operation of a method body. Only the operand field that
// matches the opcode's OperandKind is meaningful.
type Instruction struct {
	OpCode  OpCode
	Int     int64
	Str     string
	Method  *MethodRef
	Target  InstrID
	Targets []InstrID
}

// IsCall reports whether the instruction is a direct call with a method operand.
func (ins *Instruction) IsCall() bool {
	return ins.OpCode.Category() == CategoryCall && ins.Method != nil
}

// HandlerKind classifies an exception handler.
type HandlerKind uint8

// Handler kinds.
const (
	HandlerCatch HandlerKind = iota
	HandlerFinally
	HandlerFault
)

// Known reports whether k is one of the defined handler kinds.
func (k HandlerKind) Known() bool { return k <= HandlerFault }

// ExceptionHandler is a protected range and its handler, expressed in ids.
// End ids are exclusive; EndOfBody means "to the end".
type ExceptionHandler struct {
	Kind         HandlerKind
	TryStart     InstrID
	TryEnd       InstrID
	HandlerStart InstrID
	HandlerEnd   InstrID
	CatchType    string
}

// Body is the instruction stream of a method, kept as an append-only arena
// plus the program order of arena ids.
type Body struct {
	MaxStack int
	Handlers []ExceptionHandler

	arena []Instruction
	order []InstrID
}

// NewBody builds a body from instructions in program order. Branch operands
// are interpreted as positions in ins, which equal their ids in a fresh body.
func NewBody(maxStack int, ins ...Instruction) *Body {
	b := &Body{MaxStack: maxStack}
	for _, i := range ins {
		b.Append(i)
	}

	return b
}

// Len returns the number of instructions.
func (b *Body) Len() int { return len(b.order) }

// At returns the instruction at program position pos.
func (b *Body) At(pos int) *Instruction {
	return &b.arena[b.order[pos]]
}

// ID returns the arena id at program position pos.
func (b *Body) ID(pos int) InstrID {
	return b.order[pos]
}

// Get returns the instruction with the given id.
func (b *Body) Get(id InstrID) (*Instruction, bool) {
	if id < 0 || int(id) >= len(b.arena) {
		return nil, false
	}

	return &b.arena[id], true
}

// Position returns the program position of an id.
func (b *Body) Position(id InstrID) (int, bool) {
	pos := slices.Index(b.order, id)

	return pos, pos >= 0
}

// All iterates instructions in program order.
func (b *Body) All() iter.Seq2[int, *Instruction] {
	return func(yield func(int, *Instruction) bool) {
		for pos, id := range b.order {
			if !yield(pos, &b.arena[id]) {
				return
			}
		}
	}
}

// Append adds an instruction at the end of the stream.
func (b *Body) Append(ins Instruction) InstrID {
	id := InstrID(len(b.arena))
	b.arena = append(b.arena, ins)
	b.order = append(b.order, id)

	return id
}

// InsertAfter places ins directly after program position pos. Instructions
// behind it move one position down; their ids are unchanged.
func (b *Body) InsertAfter(pos int, ins Instruction) (InstrID, error) {
	if pos < 0 || pos >= len(b.order) {
		return 0, fmt.Errorf("insert position %d out of range [0,%d)", pos, len(b.order))
	}

	id := InstrID(len(b.arena))
	b.arena = append(b.arena, ins)
	b.order = slices.Insert(b.order, pos+1, id)

	return id, nil
}

// Validate checks that every id referenced by an operand or handler is part
// of the stream and that call operands are present.
func (b *Body) Validate() error {
	live := make(map[InstrID]bool, len(b.order))
	for _, id := range b.order {
		live[id] = true
	}

	for pos, ins := range b.All() {
		if !ins.OpCode.Known() {
			return fmt.Errorf("instruction %d: unknown opcode %s", pos, ins.OpCode)
		}

		switch ins.OpCode.Operand() {
		case OperandMethod:
			if ins.Method == nil {
				return fmt.Errorf("instruction %d: %s without method operand", pos, ins.OpCode)
			}
		case OperandBranch:
			if !live[ins.Target] {
				return fmt.Errorf("instruction %d: branch to unknown id %d", pos, ins.Target)
			}
		case OperandSwitch:
			for _, target := range ins.Targets {
				if !live[target] {
					return fmt.Errorf("instruction %d: switch to unknown id %d", pos, target)
				}
			}
		}
	}

	for i, h := range b.Handlers {
		for _, id := range []InstrID{h.TryStart, h.TryEnd, h.HandlerStart, h.HandlerEnd} {
			if id != EndOfBody && !live[id] {
				return fmt.Errorf("handler %d: range references unknown id %d", i, id)
			}
		}
	}

	return nil
}
