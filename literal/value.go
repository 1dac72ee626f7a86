// Package literal serializes array and object literals into the shared
// literal buffers of a module, and decodes them back.
package literal

import (
	"math"
	"strconv"
)

// Kind identifies the type of a literal value.
type Kind uint8

const (
	KindNull Kind = iota
	KindUndefined
	KindBool
	KindNumber
	KindString
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a literal that can appear in an array or object initializer.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

var (
	// Null is the null literal.
	Null = Value{kind: KindNull}
	// Undefined is the undefined literal.
	Undefined = Value{kind: KindUndefined}
)

// Number returns a numeric literal.
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// String returns a string literal.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool returns a boolean literal.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Number returns the numeric payload. Only meaningful for KindNumber.
func (v Value) Number() float64 {
	return v.num
}

// Str returns the string payload. Only meaningful for KindString.
func (v Value) Str() string {
	return v.str
}

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool {
	return v.b
}

// String returns the value formatted as source text.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	default:
		return "?"
	}
}

// int32Value returns v as an int32 if it is exactly representable and not
// negative zero.
func int32Value(v float64) (int32, bool) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	i := int32(v)
	if float64(i) != v {
		return 0, false
	}
	if i == 0 && math.Signbit(v) {
		return 0, false
	}
	return i, true
}
