package bcgen

import (
	"fmt"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/errz"
	"github.com/deepnoodle-ai/bcgen/op"
)

// DefaultNameID is the name string ID used when a function's name does not
// matter.
const DefaultNameID uint32 = 0

// Function identifies a function of the program being assembled. Identity is
// by interface equality, so implementations are normally pointers.
type Function interface {
	DefinitionKind() bytecode.DefinitionKind
	StrictMode() bool
	ParamCount() uint32
	EnvironmentSize() uint32
	Name() string
}

// Label is a position in a function's instruction stream that jumps and
// switches can target before it is known.
type Label int

const unbound = -1

type jumpReloc struct {
	loc   uint32
	label Label
	short bool
}

type switchReloc struct {
	loc          uint32
	defaultLabel Label
	caseLabels   []Label
	segment      uint32
}

// FunctionGenerator builds the bytecode of a single function.
type FunctionGenerator struct {
	module    *ModuleGenerator
	frameSize uint32

	opcodes   []byte
	labels    []int64
	jumps     []*jumpReloc
	switches  []*switchReloc
	jumpTable []uint32

	handlers         []bytecode.ExceptionHandler
	sourceLocation   bytecode.DebugSourceLocation
	debugLocations   []bytecode.DebugSourceLocation
	variableNames    []string
	lexicalParentID  uint32
	hasLexicalParent bool

	highestReadCacheIndex  uint8
	highestWriteCacheIndex uint8

	relaxed      bool
	relaxErr     error
	complete     bool
	finalized    bool
	bytecodeSize uint32
}

// FrameSize returns the number of registers used by the function.
func (fg *FunctionGenerator) FrameSize() uint32 {
	return fg.frameSize
}

// Size returns the current length of the instruction stream.
func (fg *FunctionGenerator) Size() uint32 {
	return uint32(len(fg.opcodes))
}

// FunctionID returns the module-wide ID of f, allocating one if needed.
func (fg *FunctionGenerator) FunctionID(f Function) uint32 {
	return fg.module.AddFunction(f)
}

// AddConstantString registers s in the module's string table.
func (fg *FunctionGenerator) AddConstantString(s string, isIdentifier bool) uint32 {
	return fg.module.AddString(s, isIdentifier)
}

// AddRegExp registers re in the module's regexp table.
func (fg *FunctionGenerator) AddRegExp(re bytecode.RegExp) uint32 {
	return fg.module.AddRegExp(re)
}

// AddFilename registers name in the module's filename table.
func (fg *FunctionGenerator) AddFilename(name string) uint32 {
	return fg.module.AddFilename(name)
}

// AddExceptionHandler appends a handler. Handlers are kept in the order they
// are added.
func (fg *FunctionGenerator) AddExceptionHandler(h bytecode.ExceptionHandler) {
	fg.checkMutable()
	fg.handlers = append(fg.handlers, h)
}

// SetSourceLocation sets the location of the function's definition.
func (fg *FunctionGenerator) SetSourceLocation(loc bytecode.DebugSourceLocation) {
	fg.checkMutable()
	fg.sourceLocation = loc
}

// SourceLocation returns the location of the function's definition.
func (fg *FunctionGenerator) SourceLocation() bytecode.DebugSourceLocation {
	return fg.sourceLocation
}

// AddDebugSourceLocation maps an opcode address to a source position.
// Locations must be added in increasing address order.
func (fg *FunctionGenerator) AddDebugSourceLocation(loc bytecode.DebugSourceLocation) {
	fg.checkMutable()
	fg.debugLocations = append(fg.debugLocations, loc)
}

// SetDebugVariableNames names the function's frame slots.
func (fg *FunctionGenerator) SetDebugVariableNames(names []string) error {
	if err := fg.module.mutable(); err != nil {
		return err
	}
	if uint32(len(names)) > fg.frameSize {
		return errz.Newf(errz.ErrInternal, errz.ErrTooManyVariableNames,
			"%d variable names for frame size %d", len(names), fg.frameSize)
	}
	fg.variableNames = append([]string(nil), names...)
	return nil
}

// SetLexicalParentID records the function enclosing this one.
func (fg *FunctionGenerator) SetLexicalParentID(id uint32) {
	fg.checkMutable()
	fg.lexicalParentID = id
	fg.hasLexicalParent = true
}

// ClearLexicalParentID marks the function as top level.
func (fg *FunctionGenerator) ClearLexicalParentID() {
	fg.checkMutable()
	fg.lexicalParentID = 0
	fg.hasLexicalParent = false
}

// LexicalParentID returns the enclosing function's ID. The second return
// value is false for top-level functions.
func (fg *FunctionGenerator) LexicalParentID() (uint32, bool) {
	return fg.lexicalParentID, fg.hasLexicalParent
}

// SetJumpTable replaces the function's jump table. Switches emitted with
// EmitSwitchImm fill their segments during relaxation.
func (fg *FunctionGenerator) SetJumpTable(table []uint32) {
	fg.checkMutable()
	fg.jumpTable = append([]uint32(nil), table...)
}

// JumpTable returns a copy of the function's jump table.
func (fg *FunctionGenerator) JumpTable() []uint32 {
	return append([]uint32(nil), fg.jumpTable...)
}

// SetHighestReadCacheIndex records the highest property read cache index
// used by the function.
func (fg *FunctionGenerator) SetHighestReadCacheIndex(idx uint8) {
	fg.checkMutable()
	fg.highestReadCacheIndex = idx
}

// SetHighestWriteCacheIndex records the highest property write cache index
// used by the function.
func (fg *FunctionGenerator) SetHighestWriteCacheIndex(idx uint8) {
	fg.checkMutable()
	fg.highestWriteCacheIndex = idx
}

// BytecodeGenerationComplete freezes the length of the instruction stream.
// If the function contains jumps or switches, RelaxJumps must run first.
func (fg *FunctionGenerator) BytecodeGenerationComplete() error {
	if err := fg.module.mutable(); err != nil {
		return err
	}
	return fg.completeGeneration()
}

func (fg *FunctionGenerator) completeGeneration() error {
	if fg.complete {
		return errz.New(errz.ErrProtocol, errz.ErrAlreadyComplete)
	}
	if fg.relaxErr != nil {
		return fg.relaxErr
	}
	if !fg.relaxed && (len(fg.jumps) > 0 || len(fg.switches) > 0) {
		return errz.New(errz.ErrProtocol, errz.ErrNotRelaxed)
	}
	fg.bytecodeSize = uint32(len(fg.opcodes))
	fg.complete = true
	return nil
}

// GenerateBytecodeFunction finalizes the function and returns its immutable
// record. Generation is completed first if it has not been already.
func (fg *FunctionGenerator) GenerateBytecodeFunction(
	kind bytecode.DefinitionKind,
	strict bool,
	paramCount uint32,
	environmentSize uint32,
	nameID uint32,
) (*bytecode.Function, error) {
	if fg.finalized {
		return nil, errz.New(errz.ErrProtocol, errz.ErrFunctionFinalized)
	}
	if !fg.complete {
		if err := fg.completeGeneration(); err != nil {
			return nil, err
		}
	}
	fg.finalized = true
	params := bytecode.FunctionParams{
		NameID:                 nameID,
		ParamCount:             paramCount,
		FrameSize:              fg.frameSize,
		EnvironmentSize:        environmentSize,
		DefinitionKind:         kind,
		StrictMode:             strict,
		Opcodes:                fg.opcodes,
		BytecodeSize:           fg.bytecodeSize,
		JumpTable:              fg.jumpTable,
		HighestReadCacheIndex:  fg.highestReadCacheIndex,
		HighestWriteCacheIndex: fg.highestWriteCacheIndex,
		ExceptionHandlers:      fg.handlers,
		SourceLocation:         fg.sourceLocation,
		DebugLocations:         fg.debugLocations,
		VariableNames:          fg.variableNames,
		LexicalParentID:        fg.lexicalParentID,
		HasLexicalParent:       fg.hasLexicalParent,
	}
	if fg.module.cfg.stripDebugInfo {
		params.DebugLocations = nil
		params.VariableNames = nil
	}
	return bytecode.NewFunction(params), nil
}

// checkMutable panics if the owning module has been consumed.
func (fg *FunctionGenerator) checkMutable() {
	fg.module.checkMutable()
}

// checkEmittable panics if the instruction stream can no longer change.
func (fg *FunctionGenerator) checkEmittable() {
	fg.checkMutable()
	if fg.relaxed || fg.complete {
		panic(errz.Newf(errz.ErrProtocol, errz.ErrFunctionFinalized,
			"cannot emit after the instruction stream is settled"))
	}
}

// validateHandlers checks every exception handler against the final stream
// size.
func validateHandlers(id uint32, fn *bytecode.Function) []error {
	var errs []error
	size := fn.BytecodeSize()
	for i := 0; i < fn.ExceptionHandlerCount(); i++ {
		h := fn.ExceptionHandlerAt(i)
		if h.Start > h.End || h.End > size || h.Target >= size {
			errs = append(errs, errz.Newf(errz.ErrInternal, errz.ErrHandlerRange,
				"function %d: handler %d %s outside of %d bytes", id, i, h, size))
		}
	}
	return errs
}

func operandError(code op.Code, n int, v int64) string {
	info := op.GetInfo(code)
	return fmt.Sprintf("bcgen: operand %d of %s does not fit %s: %d", n, info.Name, info.Operands[n], v)
}
