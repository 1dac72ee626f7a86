// Package op defines the opcodes and operand layouts of the register-based
// bytecode produced by the assembler.
package op

import "math"

// Code is a one-byte opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Execution
	Unreachable     Code = 1
	Ret             Code = 2
	Call            Code = 3
	Throw           Code = 4
	Catch           Code = 5
	Debugger        Code = 6
	AsyncBreakCheck Code = 7

	// Moves and constants
	Mov                      Code = 10
	MovLong                  Code = 11
	LoadParam                Code = 12
	LoadConstUndefined       Code = 13
	LoadConstNull            Code = 14
	LoadConstTrue            Code = 15
	LoadConstFalse           Code = 16
	LoadConstZero            Code = 17
	LoadConstUInt8           Code = 18
	LoadConstInt             Code = 19
	LoadConstDouble          Code = 20
	LoadConstString          Code = 21
	LoadConstStringLongIndex Code = 22

	// Operations
	Add       Code = 30
	Sub       Code = 31
	Mul       Code = 32
	Div       Code = 33
	Less      Code = 34
	Greater   Code = 35
	Eq        Code = 36
	StrictEq  Code = 37
	Not       Code = 38
	Negate    Code = 39
	TypeOf    Code = 40
	Increment Code = 41

	// Objects, arrays and properties
	GetGlobalObject     Code = 50
	GetByID             Code = 51
	PutByID             Code = 52
	NewObject           Code = 53
	NewArray            Code = 54
	NewArrayWithBuffer  Code = 55
	NewObjectWithBuffer Code = 56
	CreateRegExp        Code = 57

	// Closures and environments
	CreateEnvironment Code = 60
	CreateClosure     Code = 61
	LoadFromEnv       Code = 62
	StoreToEnv        Code = 63

	// Switch
	SwitchImm Code = 70

	// Jumps. Each jump has a short (Addr8) and a long (Addr32) form; the
	// offset is always the first operand and is relative to the first byte
	// of the jump instruction.
	Jmp                 Code = 80
	JmpLong             Code = 81
	JmpTrue             Code = 82
	JmpTrueLong         Code = 83
	JmpFalse            Code = 84
	JmpFalseLong        Code = 85
	JmpUndefined        Code = 86
	JmpUndefinedLong    Code = 87
	JLess               Code = 88
	JLessLong           Code = 89
	JGreater            Code = 90
	JGreaterLong        Code = 91
	JStrictEqual        Code = 92
	JStrictEqualLong    Code = 93
	JStrictNotEqual     Code = 94
	JStrictNotEqualLong Code = 95
)

// OperandType describes the encoding of a single instruction operand.
type OperandType uint8

const (
	Reg8 OperandType = iota + 1
	Reg32
	UInt8
	UInt16
	UInt32
	Addr8
	Addr32
	Imm32
	Double
)

// Size returns the encoded width of the operand in bytes.
func (t OperandType) Size() int {
	switch t {
	case Reg8, UInt8, Addr8:
		return 1
	case UInt16:
		return 2
	case Reg32, UInt32, Addr32, Imm32:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// Signed returns true if the operand holds a signed value.
func (t OperandType) Signed() bool {
	return t == Addr8 || t == Addr32 || t == Imm32
}

// String returns the name of the operand type.
func (t OperandType) String() string {
	switch t {
	case Reg8:
		return "Reg8"
	case Reg32:
		return "Reg32"
	case UInt8:
		return "UInt8"
	case UInt16:
		return "UInt16"
	case UInt32:
		return "UInt32"
	case Addr8:
		return "Addr8"
	case Addr32:
		return "Addr32"
	case Imm32:
		return "Imm32"
	case Double:
		return "Double"
	default:
		return ""
	}
}

// Fits returns true if v can be encoded in an operand of this type.
func (t OperandType) Fits(v int64) bool {
	switch t {
	case Reg8, UInt8:
		return v >= 0 && v <= math.MaxUint8
	case UInt16:
		return v >= 0 && v <= math.MaxUint16
	case Reg32, UInt32:
		return v >= 0 && v <= math.MaxUint32
	case Addr8:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case Addr32, Imm32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case Double:
		return true
	default:
		return false
	}
}

// Info contains information about an opcode.
type Info struct {
	Code     Code
	Name     string
	Operands []OperandType
}

// OperandCount returns the number of operands the opcode takes.
func (i Info) OperandCount() int {
	return len(i.Operands)
}

// Size returns the encoded size of the instruction, opcode byte included.
func (i Info) Size() int {
	size := 1
	for _, o := range i.Operands {
		size += o.Size()
	}
	return size
}

// OperandOffset returns the byte offset of operand n relative to the start
// of the instruction.
func (i Info) OperandOffset(n int) int {
	offset := 1
	for _, o := range i.Operands[:n] {
		offset += o.Size()
	}
	return offset
}

// Valid returns true if the info describes a defined opcode.
func (i Info) Valid() bool {
	return i.Name != ""
}

var (
	infos       = make([]Info, 256)
	longToShort = map[Code]Code{}
	shortToLong = map[Code]Code{}
)

func init() {
	type opInfo struct {
		op       Code
		name     string
		operands []OperandType
	}
	ops := []opInfo{
		{Unreachable, "Unreachable", nil},
		{Ret, "Ret", []OperandType{Reg8}},
		{Call, "Call", []OperandType{Reg8, Reg8, UInt8}},
		{Throw, "Throw", []OperandType{Reg8}},
		{Catch, "Catch", []OperandType{Reg8}},
		{Debugger, "Debugger", nil},
		{AsyncBreakCheck, "AsyncBreakCheck", nil},
		{Mov, "Mov", []OperandType{Reg8, Reg8}},
		{MovLong, "MovLong", []OperandType{Reg32, Reg32}},
		{LoadParam, "LoadParam", []OperandType{Reg8, UInt8}},
		{LoadConstUndefined, "LoadConstUndefined", []OperandType{Reg8}},
		{LoadConstNull, "LoadConstNull", []OperandType{Reg8}},
		{LoadConstTrue, "LoadConstTrue", []OperandType{Reg8}},
		{LoadConstFalse, "LoadConstFalse", []OperandType{Reg8}},
		{LoadConstZero, "LoadConstZero", []OperandType{Reg8}},
		{LoadConstUInt8, "LoadConstUInt8", []OperandType{Reg8, UInt8}},
		{LoadConstInt, "LoadConstInt", []OperandType{Reg8, Imm32}},
		{LoadConstDouble, "LoadConstDouble", []OperandType{Reg8, Double}},
		{LoadConstString, "LoadConstString", []OperandType{Reg8, UInt16}},
		{LoadConstStringLongIndex, "LoadConstStringLongIndex", []OperandType{Reg8, UInt32}},
		{Add, "Add", []OperandType{Reg8, Reg8, Reg8}},
		{Sub, "Sub", []OperandType{Reg8, Reg8, Reg8}},
		{Mul, "Mul", []OperandType{Reg8, Reg8, Reg8}},
		{Div, "Div", []OperandType{Reg8, Reg8, Reg8}},
		{Less, "Less", []OperandType{Reg8, Reg8, Reg8}},
		{Greater, "Greater", []OperandType{Reg8, Reg8, Reg8}},
		{Eq, "Eq", []OperandType{Reg8, Reg8, Reg8}},
		{StrictEq, "StrictEq", []OperandType{Reg8, Reg8, Reg8}},
		{Not, "Not", []OperandType{Reg8, Reg8}},
		{Negate, "Negate", []OperandType{Reg8, Reg8}},
		{TypeOf, "TypeOf", []OperandType{Reg8, Reg8}},
		{Increment, "Inc", []OperandType{Reg8, Reg8}},
		{GetGlobalObject, "GetGlobalObject", []OperandType{Reg8}},
		{GetByID, "GetById", []OperandType{Reg8, Reg8, UInt8, UInt16}},
		{PutByID, "PutById", []OperandType{Reg8, Reg8, UInt8, UInt16}},
		{NewObject, "NewObject", []OperandType{Reg8}},
		{NewArray, "NewArray", []OperandType{Reg8, UInt16}},
		{NewArrayWithBuffer, "NewArrayWithBuffer", []OperandType{Reg8, UInt16, UInt16, UInt32}},
		{NewObjectWithBuffer, "NewObjectWithBuffer", []OperandType{Reg8, UInt16, UInt16, UInt32, UInt32}},
		{CreateRegExp, "CreateRegExp", []OperandType{Reg8, UInt32, UInt32, UInt32}},
		{CreateEnvironment, "CreateEnvironment", []OperandType{Reg8}},
		{CreateClosure, "CreateClosure", []OperandType{Reg8, Reg8, UInt16}},
		{LoadFromEnv, "LoadFromEnvironment", []OperandType{Reg8, Reg8, UInt8}},
		{StoreToEnv, "StoreToEnvironment", []OperandType{Reg8, UInt8, Reg8}},
		{SwitchImm, "SwitchImm", []OperandType{Reg8, UInt32, Addr32, UInt32, UInt32}},
	}
	type jumpInfo struct {
		short, long Code
		name        string
		operands    []OperandType
	}
	jumps := []jumpInfo{
		{Jmp, JmpLong, "Jmp", nil},
		{JmpTrue, JmpTrueLong, "JmpTrue", []OperandType{Reg8}},
		{JmpFalse, JmpFalseLong, "JmpFalse", []OperandType{Reg8}},
		{JmpUndefined, JmpUndefinedLong, "JmpUndefined", []OperandType{Reg8}},
		{JLess, JLessLong, "JLess", []OperandType{Reg8, Reg8}},
		{JGreater, JGreaterLong, "JGreater", []OperandType{Reg8, Reg8}},
		{JStrictEqual, JStrictEqualLong, "JStrictEqual", []OperandType{Reg8, Reg8}},
		{JStrictNotEqual, JStrictNotEqualLong, "JStrictNotEqual", []OperandType{Reg8, Reg8}},
	}
	for _, j := range jumps {
		ops = append(ops,
			opInfo{j.short, j.name, append([]OperandType{Addr8}, j.operands...)},
			opInfo{j.long, j.name + "Long", append([]OperandType{Addr32}, j.operands...)},
		)
		longToShort[j.long] = j.short
		shortToLong[j.short] = j.long
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:     o.op,
			Name:     o.name,
			Operands: o.operands,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// String returns the name of the opcode.
func (c Code) String() string {
	return infos[c].Name
}

// ShortJump returns the short form of a long jump opcode. The second return
// value is false if op is not a long jump.
func ShortJump(op Code) (Code, bool) {
	short, ok := longToShort[op]
	return short, ok
}

// LongJump returns the long form of a short jump opcode. The second return
// value is false if op is not a short jump.
func LongJump(op Code) (Code, bool) {
	long, ok := shortToLong[op]
	return long, ok
}

// IsLongJump returns true if op is the long form of a jump.
func IsLongJump(op Code) bool {
	_, ok := longToShort[op]
	return ok
}

// IsJump returns true if op is either form of a jump.
func IsJump(op Code) bool {
	if _, ok := longToShort[op]; ok {
		return true
	}
	_, ok := shortToLong[op]
	return ok
}

// Float encodes a Double operand so it can be passed alongside integer
// operands.
func Float(v float64) int64 {
	return int64(math.Float64bits(v))
}
