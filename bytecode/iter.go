package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/deepnoodle-ai/bcgen/op"
)

// Instruction is one decoded instruction of a function's opcode stream.
type Instruction struct {
	Offset   uint32
	Code     op.Code
	Operands []int64
}

// Size returns the encoded size of the instruction.
func (i Instruction) Size() int {
	return op.GetInfo(i.Code).Size()
}

// InstructionIter iterates over the instructions of a Function. Iteration
// stops at the end of the instruction stream; any jump table is not decoded.
type InstructionIter struct {
	fn  *Function
	pos uint32
	err error
}

// Next returns the next instruction.
// Returns false when there are no more instructions or the stream is malformed.
func (i *InstructionIter) Next() (Instruction, bool) {
	if i.err != nil || i.pos >= i.fn.bytecodeSize {
		return Instruction{}, false
	}
	code := op.Code(i.fn.opcodes[i.pos])
	info := op.GetInfo(code)
	if !info.Valid() {
		i.err = fmt.Errorf("invalid opcode %d at offset %d", code, i.pos)
		return Instruction{}, false
	}
	end := i.pos + uint32(info.Size())
	if end > i.fn.bytecodeSize {
		i.err = fmt.Errorf("truncated %s at offset %d", info.Name, i.pos)
		return Instruction{}, false
	}
	instr := Instruction{
		Offset:   i.pos,
		Code:     code,
		Operands: make([]int64, info.OperandCount()),
	}
	for n, typ := range info.Operands {
		off := i.pos + uint32(info.OperandOffset(n))
		instr.Operands[n] = DecodeOperand(typ, i.fn.opcodes[off:])
	}
	i.pos = end
	return instr, true
}

// Err returns the decoding error that stopped iteration, if any.
func (i *InstructionIter) Err() error {
	return i.err
}

// All returns all instructions as a newly allocated slice.
// This is a convenience method that collects all results from Next().
func (i *InstructionIter) All() ([]Instruction, error) {
	var results []Instruction
	for {
		instr, ok := i.Next()
		if !ok {
			break
		}
		results = append(results, instr)
	}
	return results, i.err
}

// NewInstructionIter creates a new instruction iterator for the given function.
func NewInstructionIter(fn *Function) *InstructionIter {
	return &InstructionIter{fn: fn}
}

// DecodeOperand reads a little-endian operand of the given type from b.
func DecodeOperand(typ op.OperandType, b []byte) int64 {
	switch typ {
	case op.Reg8, op.UInt8:
		return int64(b[0])
	case op.Addr8:
		return int64(int8(b[0]))
	case op.UInt16:
		return int64(binary.LittleEndian.Uint16(b))
	case op.Reg32, op.UInt32:
		return int64(binary.LittleEndian.Uint32(b))
	case op.Addr32, op.Imm32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case op.Double:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

// EncodeOperand writes v as a little-endian operand of the given type into b.
func EncodeOperand(typ op.OperandType, b []byte, v int64) {
	switch typ {
	case op.Reg8, op.UInt8, op.Addr8:
		b[0] = byte(v)
	case op.UInt16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case op.Reg32, op.UInt32, op.Addr32, op.Imm32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case op.Double:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}
