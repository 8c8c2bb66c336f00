package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	m "modhook.dev/pkg/modhook/internal/model"
)

// TypeSummary is one row of a module inspection.
type TypeSummary struct {
	Type         string
	Methods      int
	Instructions int
	Nested       int
}

// Summarize lists every type with method and instruction counts.
func Summarize(mod *m.Module) []TypeSummary {
	var rows []TypeSummary

	mod.Walk(func(t *m.TypeDef) bool {
		row := TypeSummary{Type: t.FullName(), Methods: len(t.Methods), Nested: len(t.Nested)}

		for _, md := range t.Methods {
			if md.Body != nil {
				row.Instructions += md.Body.Len()
			}
		}

		rows = append(rows, row)

		return true
	})

	return rows
}

// Listing renders every method body as text, one instruction per line, with
// branch operands shown as positions.
func Listing(mod *m.Module) []string {
	var lines []string

	mod.Walk(func(t *m.TypeDef) bool {
		for _, md := range t.Methods {
			if md.Body == nil {
				lines = append(lines, md.FullName()+" (no body)")
				continue
			}

			lines = append(lines, md.FullName())

			for pos, ins := range md.Body.All() {
				lines = append(lines, fmt.Sprintf("  IL_%04d: %s", pos, formatInstruction(md.Body, ins)))
			}
		}

		return true
	})

	return lines
}

// DiffListings returns a unified diff between two modules' listings.
func DiffListings(fromName string, from *m.Module, toName string, to *m.Module) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        withNewlines(Listing(from)),
		B:        withNewlines(Listing(to)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line + "\n"
	}

	return out
}

func formatInstruction(body *m.Body, ins *m.Instruction) string {
	op := ins.OpCode.String()

	label := func(id m.InstrID) string {
		pos, ok := body.Position(id)
		if !ok {
			return "?"
		}

		return fmt.Sprintf("IL_%04d", pos)
	}

	switch ins.OpCode.Operand() {
	case m.OperandInt:
		return op + " " + strconv.FormatInt(ins.Int, 10)
	case m.OperandString:
		return op + " " + strconv.Quote(ins.Str)
	case m.OperandToken:
		return op + " " + ins.Str
	case m.OperandMethod:
		return op + " " + ins.Method.String()
	case m.OperandBranch:
		return op + " " + label(ins.Target)
	case m.OperandSwitch:
		labels := make([]string, 0, len(ins.Targets))
		for _, target := range ins.Targets {
			labels = append(labels, label(target))
		}

		return op + " (" + strings.Join(labels, ", ") + ")"
	default:
		return op
	}
}
