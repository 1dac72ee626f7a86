package bcgen

import (
	"fmt"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/op"
)

// Emit appends an instruction and returns its offset. The number of operands
// must match the opcode and each operand must fit its encoding; violations
// are programming errors and panic.
func (fg *FunctionGenerator) Emit(code op.Code, operands ...int64) uint32 {
	fg.checkEmittable()
	pos := uint32(len(fg.opcodes))
	fg.opcodes = append(fg.opcodes, makeInstruction(code, operands...)...)
	return pos
}

func makeInstruction(code op.Code, operands ...int64) []byte {
	info := op.GetInfo(code)
	if !info.Valid() {
		panic(fmt.Sprintf("bcgen: invalid opcode %d", code))
	}
	if len(operands) != info.OperandCount() {
		panic(fmt.Sprintf("bcgen: wrong operand count for %s: want %d, got %d",
			info.Name, info.OperandCount(), len(operands)))
	}
	instruction := make([]byte, info.Size())
	instruction[0] = byte(code)
	for n, v := range operands {
		typ := info.Operands[n]
		if !typ.Fits(v) {
			panic(operandError(code, n, v))
		}
		bytecode.EncodeOperand(typ, instruction[info.OperandOffset(n):], v)
	}
	return instruction
}

// NewLabel returns a new unbound label.
func (fg *FunctionGenerator) NewLabel() Label {
	fg.checkEmittable()
	fg.labels = append(fg.labels, unbound)
	return Label(len(fg.labels) - 1)
}

// Bind binds label to the current end of the instruction stream. A label
// can be bound only once.
func (fg *FunctionGenerator) Bind(label Label) {
	fg.checkEmittable()
	if fg.labels[label] != unbound {
		panic(fmt.Sprintf("bcgen: label %d already bound", label))
	}
	fg.labels[label] = int64(len(fg.opcodes))
}

// EmitJump appends a long jump to label and returns its offset. Any operands
// after the offset (such as condition registers) are passed as extra.
func (fg *FunctionGenerator) EmitJump(code op.Code, label Label, extra ...int64) uint32 {
	if !op.IsLongJump(code) {
		panic(fmt.Sprintf("bcgen: %s is not a long jump", code))
	}
	fg.checkLabel(label)
	operands := append([]int64{0}, extra...)
	loc := fg.Emit(code, operands...)
	fg.jumps = append(fg.jumps, &jumpReloc{loc: loc, label: label})
	return loc
}

// EmitSwitchImm appends a SwitchImm on the value in valueReg. Values in
// [lo, hi] jump to the matching case label, others to defaultLabel. The
// switch owns the next hi-lo+1 entries of the jump table.
func (fg *FunctionGenerator) EmitSwitchImm(valueReg uint8, lo, hi uint32, defaultLabel Label, caseLabels []Label) uint32 {
	if hi < lo || uint64(len(caseLabels)) != uint64(hi)-uint64(lo)+1 {
		panic(fmt.Sprintf("bcgen: switch on [%d, %d] needs %d case labels, got %d",
			lo, hi, int64(hi)-int64(lo)+1, len(caseLabels)))
	}
	fg.checkLabel(defaultLabel)
	for _, l := range caseLabels {
		fg.checkLabel(l)
	}
	loc := fg.Emit(op.SwitchImm, int64(valueReg), 0, 0, int64(lo), int64(hi))
	segment := uint32(len(fg.jumpTable))
	fg.jumpTable = append(fg.jumpTable, make([]uint32, len(caseLabels))...)
	fg.switches = append(fg.switches, &switchReloc{
		loc:          loc,
		defaultLabel: defaultLabel,
		caseLabels:   append([]Label(nil), caseLabels...),
		segment:      segment,
	})
	return loc
}

func (fg *FunctionGenerator) checkLabel(label Label) {
	if label < 0 || int(label) >= len(fg.labels) {
		panic(fmt.Sprintf("bcgen: unknown label %d", label))
	}
}
