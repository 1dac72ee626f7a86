package bcgen

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/errz"
	"github.com/deepnoodle-ai/bcgen/op"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testFunction struct {
	name   string
	kind   bytecode.DefinitionKind
	strict bool
	params uint32
	env    uint32
}

func (f *testFunction) DefinitionKind() bytecode.DefinitionKind { return f.kind }
func (f *testFunction) StrictMode() bool                        { return f.strict }
func (f *testFunction) ParamCount() uint32                      { return f.params }
func (f *testFunction) EnvironmentSize() uint32                 { return f.env }
func (f *testFunction) Name() string                            { return f.name }

func newFunctionGenerator(frameSize uint32) *FunctionGenerator {
	return New().NewFunctionGenerator(frameSize)
}

func TestEmit(t *testing.T) {
	fg := newFunctionGenerator(4)
	require.Equal(t, uint32(0), fg.Emit(op.LoadConstInt, 1, -2))
	require.Equal(t, uint32(6), fg.Emit(op.Mov, 2, 1))
	require.Equal(t, uint32(9), fg.Emit(op.Ret, 2))
	require.Equal(t, []byte{
		byte(op.LoadConstInt), 1, 0xfe, 0xff, 0xff, 0xff,
		byte(op.Mov), 2, 1,
		byte(op.Ret), 2,
	}, fg.opcodes)
	require.Equal(t, uint32(11), fg.Size())
}

func TestEmitPanics(t *testing.T) {
	fg := newFunctionGenerator(1)
	require.PanicsWithValue(t, "bcgen: wrong operand count for Mov: want 2, got 1", func() {
		fg.Emit(op.Mov, 1)
	})
	require.PanicsWithValue(t, "bcgen: operand 1 of LoadConstUInt8 does not fit UInt8: 256", func() {
		fg.Emit(op.LoadConstUInt8, 0, 256)
	})
	require.PanicsWithValue(t, "bcgen: invalid opcode 0", func() {
		fg.Emit(op.Invalid)
	})
	require.PanicsWithValue(t, "bcgen: Jmp is not a long jump", func() {
		fg.EmitJump(op.Jmp, fg.NewLabel())
	})
	require.PanicsWithValue(t, "bcgen: unknown label 7", func() {
		fg.EmitJump(op.JmpLong, Label(7))
	})
	l := fg.NewLabel()
	fg.Bind(l)
	require.PanicsWithValue(t, "bcgen: label 1 already bound", func() {
		fg.Bind(l)
	})
}

func TestSingleJumpShrinks(t *testing.T) {
	fg := newFunctionGenerator(1)
	end := fg.NewLabel()
	fg.EmitJump(op.JmpLong, end)
	fg.Emit(op.LoadConstZero, 0)
	fg.Bind(end)
	fg.Emit(op.Ret, 0)
	require.Equal(t, uint32(9), fg.Size())

	require.NoError(t, fg.RelaxJumps())
	require.Equal(t, []byte{
		byte(op.Jmp), 4,
		byte(op.LoadConstZero), 0,
		byte(op.Ret), 0,
	}, fg.opcodes)
	require.Equal(t, uint32(6), fg.Size())
}

func TestBackwardJumpShrinks(t *testing.T) {
	fg := newFunctionGenerator(1)
	top := fg.NewLabel()
	fg.Bind(top)
	fg.Emit(op.LoadConstTrue, 0)
	fg.EmitJump(op.JmpTrueLong, top, 0)
	require.NoError(t, fg.RelaxJumps())
	require.Equal(t, []byte{
		byte(op.LoadConstTrue), 0,
		byte(op.JmpTrue), 0xfe, 0,
	}, fg.opcodes)
}

func TestLongJumpStaysLong(t *testing.T) {
	fg := newFunctionGenerator(1)
	end := fg.NewLabel()
	fg.EmitJump(op.JLessLong, end, 0, 0)
	for i := 0; i < 70; i++ {
		fg.Emit(op.LoadConstZero, 0)
	}
	fg.Bind(end)
	fg.Emit(op.Ret, 0)
	require.NoError(t, fg.RelaxJumps())

	// 7 bytes of jump plus 140 bytes of filler.
	require.Equal(t, []byte{byte(op.JLessLong), 147, 0, 0, 0, 0, 0}, fg.opcodes[:7])
	require.Equal(t, uint32(7+140+2), fg.Size())
}

func TestJumpChainConverges(t *testing.T) {
	var logs bytes.Buffer
	fg := New(WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel))).NewFunctionGenerator(1)

	// The outer jump is one byte out of range until the inner jump shrinks.
	end := fg.NewLabel()
	inner := fg.NewLabel()
	fg.EmitJump(op.JmpLong, end)
	fg.EmitJump(op.JmpLong, inner)
	fg.Bind(inner)
	for i := 0; i < 59; i++ {
		fg.Emit(op.LoadConstZero, 0)
	}
	fg.Bind(end)
	fg.Emit(op.Ret, 0)
	require.Equal(t, int64(128), fg.labels[end])

	require.NoError(t, fg.RelaxJumps())
	require.Equal(t, []byte{byte(op.Jmp), 122, byte(op.Jmp), 2}, fg.opcodes[:4])
	require.Equal(t, uint32(124), fg.Size())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	require.Equal(t, "relaxed jumps", entry["message"])
	require.Equal(t, float64(3), entry["passes"])
	require.Equal(t, float64(2), entry["shrunk"])
	require.Equal(t, float64(130), entry["size_before"])
	require.Equal(t, float64(124), entry["size_after"])
}

func TestShrinkShiftsDebugInfoAndHandlers(t *testing.T) {
	fg := newFunctionGenerator(1)
	end := fg.NewLabel()
	fg.AddDebugSourceLocation(bytecode.DebugSourceLocation{Address: 0, Line: 1, Column: 1})
	fg.EmitJump(op.JmpLong, end)
	fg.AddDebugSourceLocation(bytecode.DebugSourceLocation{Address: 5, Line: 2, Column: 1})
	fg.Emit(op.LoadConstZero, 0)
	fg.Bind(end)
	fg.Emit(op.Ret, 0)
	fg.AddExceptionHandler(bytecode.ExceptionHandler{Start: 0, End: 7, Target: 7})
	fg.AddExceptionHandler(bytecode.ExceptionHandler{Start: 5, End: 7, Target: 5, Depth: 1})

	require.NoError(t, fg.RelaxJumps())
	require.Equal(t, uint32(0), fg.debugLocations[0].Address)
	require.Equal(t, uint32(2), fg.debugLocations[1].Address)
	require.Equal(t, []bytecode.ExceptionHandler{
		{Start: 0, End: 4, Target: 4},
		{Start: 2, End: 4, Target: 2, Depth: 1},
	}, fg.handlers)
}

func TestSwitchImm(t *testing.T) {
	fg := newFunctionGenerator(1)
	case0, case1, def := fg.NewLabel(), fg.NewLabel(), fg.NewLabel()
	require.Equal(t, uint32(0), fg.EmitSwitchImm(0, 0, 1, def, []Label{case0, case1}))
	fg.Bind(case0)
	fg.Emit(op.Ret, 0)
	fg.Bind(case1)
	fg.Emit(op.Ret, 0)
	fg.Bind(def)
	fg.Emit(op.Unreachable)
	require.NoError(t, fg.RelaxJumps())

	require.Equal(t, []byte{
		byte(op.SwitchImm), 0,
		24, 0, 0, 0, // jump table at align4(23)
		22, 0, 0, 0, // default
		0, 0, 0, 0, // min
		1, 0, 0, 0, // max
	}, fg.opcodes[:18])
	require.Equal(t, []uint32{18, 20}, fg.JumpTable())

	fn, err := fg.GenerateBytecodeFunction(bytecode.ES5Function, false, 1, 0, DefaultNameID)
	require.NoError(t, err)
	require.Equal(t, uint32(23), fn.BytecodeSize())
	require.Equal(t, 32, fn.Len())
	require.Equal(t, []byte{byte(op.Unreachable), 0, 18, 0, 0, 0, 20, 0, 0, 0}, fn.Opcodes()[22:])
}

func TestSwitchAfterShrunkJump(t *testing.T) {
	fg := newFunctionGenerator(1)
	start := fg.NewLabel()
	fg.EmitJump(op.JmpLong, start)
	fg.Bind(start)
	case0, case1, def := fg.NewLabel(), fg.NewLabel(), fg.NewLabel()
	fg.EmitSwitchImm(0, 10, 11, def, []Label{case0, case1})
	fg.Bind(case0)
	fg.Emit(op.Ret, 0)
	fg.Bind(case1)
	fg.Emit(op.Ret, 0)
	fg.Bind(def)
	fg.Emit(op.Unreachable)
	require.NoError(t, fg.RelaxJumps())

	require.Equal(t, uint32(25), fg.Size())
	require.Equal(t, []byte{byte(op.Jmp), 2, byte(op.SwitchImm), 0, 26, 0, 0, 0, 22, 0, 0, 0}, fg.opcodes[:12])
	require.Equal(t, []uint32{18, 20}, fg.JumpTable())
}

func TestSwitchBackwardTargets(t *testing.T) {
	fg := newFunctionGenerator(1)
	top := fg.NewLabel()
	fg.Bind(top)
	fg.Emit(op.Ret, 0)
	loc := fg.EmitSwitchImm(0, 0, 0, top, []Label{top})
	require.Equal(t, uint32(2), loc)
	require.NoError(t, fg.RelaxJumps())
	require.Equal(t, []uint32{0xfffffffe}, fg.JumpTable())
	require.Equal(t, int64(-2), bytecode.DecodeOperand(op.Addr32, fg.opcodes[loc+6:]))
}

func TestRelaxErrors(t *testing.T) {
	t.Run("unbound label", func(t *testing.T) {
		fg := newFunctionGenerator(1)
		fg.EmitJump(op.JmpLong, fg.NewLabel())
		err := fg.RelaxJumps()
		require.ErrorIs(t, err, errz.ErrUnboundLabel)
		require.True(t, errz.Is(err, errz.ErrInternal))
	})
	t.Run("unbound switch label", func(t *testing.T) {
		fg := newFunctionGenerator(1)
		l := fg.NewLabel()
		fg.Bind(l)
		fg.EmitSwitchImm(0, 0, 0, l, []Label{fg.NewLabel()})
		require.ErrorIs(t, fg.RelaxJumps(), errz.ErrUnboundLabel)
	})
	t.Run("jump table too small", func(t *testing.T) {
		fg := newFunctionGenerator(1)
		l := fg.NewLabel()
		fg.Bind(l)
		fg.EmitSwitchImm(0, 0, 2, l, []Label{l, l, l})
		fg.SetJumpTable([]uint32{0})
		require.ErrorIs(t, fg.RelaxJumps(), errz.ErrJumpTable)
	})
	t.Run("unknown jump opcode", func(t *testing.T) {
		fg := newFunctionGenerator(1)
		l := fg.NewLabel()
		fg.EmitJump(op.JmpLong, l)
		fg.Bind(l)
		fg.opcodes[0] = byte(op.MovLong)
		err := fg.RelaxJumps()
		require.ErrorIs(t, err, errz.ErrUnknownJumpOpcode)
		require.EqualError(t, err, "internal error: opcode 11 at offset 0 is not a long jump")
		// The rewritten stream cannot be relaxed again or finalized.
		require.ErrorIs(t, fg.RelaxJumps(), errz.ErrAlreadyComplete)
		require.ErrorIs(t, fg.BytecodeGenerationComplete(), errz.ErrUnknownJumpOpcode)
		_, err = fg.GenerateBytecodeFunction(bytecode.ES5Function, false, 0, 0, 0)
		require.ErrorIs(t, err, errz.ErrUnknownJumpOpcode)
		require.Panics(t, func() { fg.Emit(op.Ret, 0) })
	})
	t.Run("relaxed twice", func(t *testing.T) {
		fg := newFunctionGenerator(1)
		require.NoError(t, fg.RelaxJumps())
		require.ErrorIs(t, fg.RelaxJumps(), errz.ErrAlreadyComplete)
	})
}

func TestSwitchCaseCountPanics(t *testing.T) {
	fg := newFunctionGenerator(1)
	l := fg.NewLabel()
	require.PanicsWithValue(t, "bcgen: switch on [0, 2] needs 3 case labels, got 1", func() {
		fg.EmitSwitchImm(0, 0, 2, l, []Label{l})
	})
}

func TestBytecodeGenerationComplete(t *testing.T) {
	fg := newFunctionGenerator(1)
	l := fg.NewLabel()
	fg.EmitJump(op.JmpLong, l)
	fg.Bind(l)

	err := fg.BytecodeGenerationComplete()
	require.ErrorIs(t, err, errz.ErrNotRelaxed)
	require.True(t, errz.Is(err, errz.ErrProtocol))

	require.NoError(t, fg.RelaxJumps())
	require.NoError(t, fg.BytecodeGenerationComplete())
	require.ErrorIs(t, fg.BytecodeGenerationComplete(), errz.ErrAlreadyComplete)

	require.Panics(t, func() { fg.Emit(op.Ret, 0) })
	require.Panics(t, func() { fg.Bind(fg.NewLabel()) })
}

func TestCompleteWithoutJumpsNeedsNoRelaxation(t *testing.T) {
	fg := newFunctionGenerator(1)
	fg.Emit(op.Ret, 0)
	require.NoError(t, fg.BytecodeGenerationComplete())
}

func TestEmitAfterRelaxPanics(t *testing.T) {
	fg := newFunctionGenerator(1)
	require.NoError(t, fg.RelaxJumps())
	require.Panics(t, func() { fg.NewLabel() })
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		require.ErrorIs(t, err, errz.ErrFunctionFinalized)
	}()
	fg.Emit(op.Ret, 0)
}

func TestSetDebugVariableNames(t *testing.T) {
	fg := newFunctionGenerator(2)
	require.NoError(t, fg.SetDebugVariableNames([]string{"a", "b"}))
	err := fg.SetDebugVariableNames([]string{"a", "b", "c"})
	require.ErrorIs(t, err, errz.ErrTooManyVariableNames)
	require.EqualError(t, err, "internal error: 3 variable names for frame size 2")
}

func TestLexicalParent(t *testing.T) {
	fg := newFunctionGenerator(1)
	_, ok := fg.LexicalParentID()
	require.False(t, ok)
	fg.SetLexicalParentID(3)
	id, ok := fg.LexicalParentID()
	require.True(t, ok)
	require.Equal(t, uint32(3), id)
	fg.ClearLexicalParentID()
	_, ok = fg.LexicalParentID()
	require.False(t, ok)
}

func TestGenerateBytecodeFunction(t *testing.T) {
	m := New()
	fg := m.NewFunctionGenerator(3)
	fg.Emit(op.Ret, 0)
	fg.SetSourceLocation(bytecode.DebugSourceLocation{FilenameID: fg.AddFilename("a.js"), Line: 4, Column: 2})
	fg.AddDebugSourceLocation(bytecode.DebugSourceLocation{Address: 0, Line: 5, Column: 3})
	require.NoError(t, fg.SetDebugVariableNames([]string{"x"}))
	fg.SetLexicalParentID(0)
	fg.SetHighestReadCacheIndex(9)
	fg.SetHighestWriteCacheIndex(4)

	fn, err := fg.GenerateBytecodeFunction(bytecode.ES6Constructor, true, 2, 1, 7)
	require.NoError(t, err)
	require.Equal(t, uint32(7), fn.NameID())
	require.Equal(t, uint32(2), fn.ParamCount())
	require.Equal(t, uint32(3), fn.FrameSize())
	require.Equal(t, uint32(1), fn.EnvironmentSize())
	require.True(t, fn.StrictMode())
	require.Equal(t, bytecode.ProhibitCall, fn.ProhibitInvoke())
	require.Equal(t, uint32(4), fn.SourceLocation().Line)
	require.Equal(t, 1, fn.DebugLocationCount())
	require.Equal(t, "x", fn.VariableNameAt(0))
	require.Equal(t, uint8(9), fn.HighestReadCacheIndex())
	require.Equal(t, uint8(4), fn.HighestWriteCacheIndex())
	parent, ok := fn.LexicalParentID()
	require.True(t, ok)
	require.Equal(t, uint32(0), parent)

	_, err = fg.GenerateBytecodeFunction(bytecode.ES5Function, false, 0, 0, 0)
	require.ErrorIs(t, err, errz.ErrFunctionFinalized)
}

func TestGenerateBytecodeFunctionRequiresRelaxation(t *testing.T) {
	fg := newFunctionGenerator(1)
	l := fg.NewLabel()
	fg.Bind(l)
	fg.EmitJump(op.JmpLong, l)
	_, err := fg.GenerateBytecodeFunction(bytecode.ES5Function, false, 0, 0, 0)
	require.ErrorIs(t, err, errz.ErrNotRelaxed)
}

func TestFunctionGeneratorForwardsToModule(t *testing.T) {
	m := New()
	fg := m.NewFunctionGenerator(1)
	a := &testFunction{name: "a"}
	b := &testFunction{name: "b"}
	require.Equal(t, uint32(0), fg.FunctionID(b))
	require.Equal(t, uint32(1), m.AddFunction(a))
	require.Equal(t, uint32(0), m.AddFunction(b))
	require.Equal(t, uint32(1), fg.FunctionID(a))

	require.Equal(t, fg.AddConstantString("s", false), m.AddString("s", true))
	require.True(t, m.strings.IsIdentifier(0))
	re := bytecode.RegExp{Pattern: "x", Flags: "g", Bytecode: []byte{1}}
	require.Equal(t, fg.AddRegExp(re), m.AddRegExp(re))
	require.Equal(t, fg.AddFilename("f.js"), m.AddFilename("f.js"))
}
