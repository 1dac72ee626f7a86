package bytecode

import (
	"testing"

	"github.com/deepnoodle-ai/bcgen/op"
	"github.com/stretchr/testify/require"
)

func TestInstructionIter(t *testing.T) {
	fn := NewFunction(FunctionParams{
		Opcodes: []byte{
			byte(op.LoadConstInt), 1, 0xfe, 0xff, 0xff, 0xff,
			byte(op.Jmp), 0xfa,
			byte(op.Ret), 1,
		},
		BytecodeSize: 10,
	})
	instrs, err := NewInstructionIter(fn).All()
	require.NoError(t, err)
	require.Equal(t, []Instruction{
		{Offset: 0, Code: op.LoadConstInt, Operands: []int64{1, -2}},
		{Offset: 6, Code: op.Jmp, Operands: []int64{-6}},
		{Offset: 8, Code: op.Ret, Operands: []int64{1}},
	}, instrs)
	require.Equal(t, 2, instrs[1].Size())
}

func TestInstructionIterStopsBeforeJumpTable(t *testing.T) {
	fn := NewFunction(FunctionParams{
		Opcodes:      []byte{byte(op.Unreachable)},
		BytecodeSize: 1,
		JumpTable:    []uint32{0xffffffff},
	})
	instrs, err := NewInstructionIter(fn).All()
	require.NoError(t, err)
	require.Len(t, instrs, 1)
}

func TestInstructionIterErrors(t *testing.T) {
	invalid := NewFunction(FunctionParams{Opcodes: []byte{0xff}, BytecodeSize: 1})
	_, err := NewInstructionIter(invalid).All()
	require.EqualError(t, err, "invalid opcode 255 at offset 0")

	truncated := NewFunction(FunctionParams{Opcodes: []byte{byte(op.Mov), 1}, BytecodeSize: 2})
	_, err = NewInstructionIter(truncated).All()
	require.EqualError(t, err, "truncated Mov at offset 0")
}

func TestOperandRoundTrip(t *testing.T) {
	tests := []struct {
		typ op.OperandType
		v   int64
	}{
		{op.Reg8, 255},
		{op.Addr8, -128},
		{op.UInt16, 0xbeef},
		{op.UInt32, 0xdeadbeef},
		{op.Addr32, -100000},
		{op.Imm32, -1},
		{op.Double, op.Float(-2.5)},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			b := make([]byte, tt.typ.Size())
			EncodeOperand(tt.typ, b, tt.v)
			require.Equal(t, tt.v, DecodeOperand(tt.typ, b))
		})
	}
}
