package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DefinitionKind describes how a function was defined in source.
type DefinitionKind uint8

const (
	ES5Function DefinitionKind = iota
	ES6Constructor
	ES6Arrow
	ES6Method
)

// String returns the name of the definition kind.
func (k DefinitionKind) String() string {
	switch k {
	case ES5Function:
		return "function"
	case ES6Constructor:
		return "constructor"
	case ES6Arrow:
		return "arrow"
	case ES6Method:
		return "method"
	default:
		return fmt.Sprintf("DefinitionKind(%d)", k)
	}
}

// ProhibitInvoke records which invocation forms a function rejects.
type ProhibitInvoke uint8

const (
	ProhibitNone ProhibitInvoke = iota
	ProhibitCall
	ProhibitConstruct
)

// String returns the name of the prohibition.
func (p ProhibitInvoke) String() string {
	switch p {
	case ProhibitNone:
		return "none"
	case ProhibitCall:
		return "call"
	case ProhibitConstruct:
		return "construct"
	default:
		return fmt.Sprintf("ProhibitInvoke(%d)", p)
	}
}

// ProhibitInvokeFor returns the invocation prohibition implied by kind.
func ProhibitInvokeFor(kind DefinitionKind) ProhibitInvoke {
	switch kind {
	case ES6Arrow, ES6Method:
		return ProhibitConstruct
	case ES6Constructor:
		return ProhibitCall
	default:
		return ProhibitNone
	}
}

// Function is an assembled function record. It is immutable after creation
// and contains everything the runtime needs to execute the function, plus
// the debug metadata consumed by debug-info packagers.
type Function struct {
	nameID          uint32
	paramCount      uint32
	frameSize       uint32
	environmentSize uint32
	prohibitInvoke  ProhibitInvoke
	strictMode      bool

	// Opcodes followed by the 4-byte aligned jump table, if any.
	opcodes      []byte
	bytecodeSize uint32
	jumpTable    []uint32

	highestReadCacheIndex  uint8
	highestWriteCacheIndex uint8

	exceptionHandlers []ExceptionHandler

	sourceLocation   DebugSourceLocation
	debugLocations   []DebugSourceLocation
	variableNames    []string
	lexicalParentID  uint32
	hasLexicalParent bool
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	NameID          uint32
	ParamCount      uint32
	FrameSize       uint32
	EnvironmentSize uint32
	DefinitionKind  DefinitionKind
	StrictMode      bool

	// Opcodes holds the settled instruction stream. BytecodeSize is its
	// length; any jump table is appended by NewFunction.
	Opcodes      []byte
	BytecodeSize uint32
	JumpTable    []uint32

	HighestReadCacheIndex  uint8
	HighestWriteCacheIndex uint8

	ExceptionHandlers []ExceptionHandler

	SourceLocation   DebugSourceLocation
	DebugLocations   []DebugSourceLocation
	VariableNames    []string
	LexicalParentID  uint32
	HasLexicalParent bool
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability. The jump table, when
// present, is laid out after the instructions at a 4-byte aligned offset.
func NewFunction(params FunctionParams) *Function {
	opcodes := params.Opcodes[:params.BytecodeSize]
	var stream []byte
	if len(params.JumpTable) > 0 {
		aligned := JumpTableStart(params.BytecodeSize)
		stream = make([]byte, int(aligned)+4*len(params.JumpTable))
		copy(stream, opcodes)
		for i, entry := range params.JumpTable {
			binary.LittleEndian.PutUint32(stream[int(aligned)+4*i:], entry)
		}
	} else {
		stream = copySlice(opcodes)
	}
	return &Function{
		nameID:                 params.NameID,
		paramCount:             params.ParamCount,
		frameSize:              params.FrameSize,
		environmentSize:        params.EnvironmentSize,
		prohibitInvoke:         ProhibitInvokeFor(params.DefinitionKind),
		strictMode:             params.StrictMode,
		opcodes:                stream,
		bytecodeSize:           params.BytecodeSize,
		jumpTable:              copySlice(params.JumpTable),
		highestReadCacheIndex:  params.HighestReadCacheIndex,
		highestWriteCacheIndex: params.HighestWriteCacheIndex,
		exceptionHandlers:      copySlice(params.ExceptionHandlers),
		sourceLocation:         params.SourceLocation,
		debugLocations:         copySlice(params.DebugLocations),
		variableNames:          copySlice(params.VariableNames),
		lexicalParentID:        params.LexicalParentID,
		hasLexicalParent:       params.HasLexicalParent,
	}
}

// JumpTableStart returns the offset at which a jump table is placed after an
// instruction stream of the given size.
func JumpTableStart(bytecodeSize uint32) uint32 {
	return (bytecodeSize + 3) &^ 3
}

// NameID returns the string table index of the function's name.
func (f *Function) NameID() uint32 {
	return f.nameID
}

// ParamCount returns the number of parameters, including `this`.
func (f *Function) ParamCount() uint32 {
	return f.paramCount
}

// FrameSize returns the number of registers used by the function.
func (f *Function) FrameSize() uint32 {
	return f.frameSize
}

// EnvironmentSize returns the number of slots in the function's environment.
func (f *Function) EnvironmentSize() uint32 {
	return f.environmentSize
}

// ProhibitInvoke returns which invocation forms the function rejects.
func (f *Function) ProhibitInvoke() ProhibitInvoke {
	return f.prohibitInvoke
}

// StrictMode returns true if the function is in strict mode.
func (f *Function) StrictMode() bool {
	return f.strictMode
}

// BytecodeSize returns the length of the instruction stream in bytes,
// excluding any trailing jump table.
func (f *Function) BytecodeSize() uint32 {
	return f.bytecodeSize
}

// Opcodes returns a copy of the full opcode stream, including the trailing
// jump table.
func (f *Function) Opcodes() []byte {
	return copySlice(f.opcodes)
}

// ByteAt returns the byte at the given offset of the opcode stream.
func (f *Function) ByteAt(offset int) byte {
	return f.opcodes[offset]
}

// Len returns the length of the full opcode stream.
func (f *Function) Len() int {
	return len(f.opcodes)
}

// JumpTableCount returns the number of jump table entries.
func (f *Function) JumpTableCount() int {
	return len(f.jumpTable)
}

// JumpTableAt returns the jump table entry at the given index. Entries are
// relative to the switch instruction that owns them.
func (f *Function) JumpTableAt(index int) uint32 {
	return f.jumpTable[index]
}

// HighestReadCacheIndex returns the highest property read cache index used.
func (f *Function) HighestReadCacheIndex() uint8 {
	return f.highestReadCacheIndex
}

// HighestWriteCacheIndex returns the highest property write cache index used.
func (f *Function) HighestWriteCacheIndex() uint8 {
	return f.highestWriteCacheIndex
}

// HasExceptionHandlers returns true if the function has any handlers.
func (f *Function) HasExceptionHandlers() bool {
	return len(f.exceptionHandlers) > 0
}

// ExceptionHandlerCount returns the number of exception handlers.
func (f *Function) ExceptionHandlerCount() int {
	return len(f.exceptionHandlers)
}

// ExceptionHandlerAt returns the exception handler at the given index.
func (f *Function) ExceptionHandlerAt(index int) ExceptionHandler {
	return f.exceptionHandlers[index]
}

// SourceLocation returns the location of the function's definition.
func (f *Function) SourceLocation() DebugSourceLocation {
	return f.sourceLocation
}

// HasDebugInfo returns true if debug locations or variable names are present.
func (f *Function) HasDebugInfo() bool {
	return len(f.debugLocations) > 0 || len(f.variableNames) > 0
}

// DebugLocationCount returns the number of recorded debug locations.
func (f *Function) DebugLocationCount() int {
	return len(f.debugLocations)
}

// DebugLocationAt returns the debug location at the given index.
func (f *Function) DebugLocationAt(index int) DebugSourceLocation {
	return f.debugLocations[index]
}

// LocationForAddress returns the last debug location whose address is not
// greater than addr. The second return value is false if there is none.
func (f *Function) LocationForAddress(addr uint32) (DebugSourceLocation, bool) {
	var (
		found DebugSourceLocation
		ok    bool
	)
	for _, loc := range f.debugLocations {
		if loc.Address > addr {
			break
		}
		found, ok = loc, true
	}
	return found, ok
}

// VariableNameCount returns the number of named frame slots.
func (f *Function) VariableNameCount() int {
	return len(f.variableNames)
}

// VariableNameAt returns the name of the frame slot at the given index.
// Returns an empty string if the index is out of range.
func (f *Function) VariableNameAt(index int) string {
	if index < 0 || index >= len(f.variableNames) {
		return ""
	}
	return f.variableNames[index]
}

// LexicalParentID returns the ID of the lexically enclosing function. The
// second return value is false for top-level functions.
func (f *Function) LexicalParentID() (uint32, bool) {
	return f.lexicalParentID, f.hasLexicalParent
}

// String returns a short description of the function header.
func (f *Function) String() string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "function(name=%d, params=%d, frame=%d, env=%d, size=%d",
		f.nameID, f.paramCount, f.frameSize, f.environmentSize, f.bytecodeSize)
	if f.strictMode {
		out.WriteString(", strict")
	}
	if f.prohibitInvoke != ProhibitNone {
		out.WriteString(", prohibit=" + f.prohibitInvoke.String())
	}
	out.WriteString(")")
	return out.String()
}
