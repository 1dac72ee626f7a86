// Package errz defines the structured errors reported by the module
// generator.
package errz

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrInternal indicates an internal-consistency failure in the generator's
	// inputs, such as a function without a body.
	ErrInternal ErrorKind = iota
	// ErrProtocol indicates that the generator was driven out of order.
	ErrProtocol
	// ErrEncoding indicates a value that cannot be encoded in the bytecode.
	ErrEncoding
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrInternal:
		return "internal error"
	case ErrProtocol:
		return "protocol error"
	case ErrEncoding:
		return "encoding error"
	default:
		return "error"
	}
}

// Sentinel causes. Compare with errors.Is.
var (
	ErrGeneratorConsumed        = errors.New("module generator already consumed")
	ErrMissingFunctionGenerator = errors.New("function has no generator")
	ErrStringTableNotEmpty      = errors.New("string table is not empty")
	ErrCJSModuleOrdinal         = errors.New("static CommonJS modules must be added in ordinal order")
	ErrUnknownJumpOpcode        = errors.New("unknown jump opcode")
	ErrTooManyVariableNames     = errors.New("more variable names than frame slots")
	ErrUnboundLabel             = errors.New("label is not bound")
	ErrNotRelaxed               = errors.New("jumps have not been relaxed")
	ErrAlreadyComplete          = errors.New("bytecode generation already complete")
	ErrFunctionFinalized        = errors.New("function generator already finalized")
	ErrJumpTable                = errors.New("invalid jump table")
	ErrHandlerRange             = errors.New("exception handler out of range")
	ErrEntryPoint               = errors.New("entry point out of range")
	ErrDuplicateString          = errors.New("duplicate string in storage")
	ErrNilStringStorage         = errors.New("string storage is nil")
	ErrMalformedLiteral         = errors.New("malformed literal buffer")
)

// StructuredError is an error with a kind and an optional sentinel cause.
type StructuredError struct {
	Message string
	Kind    ErrorKind
	Cause   error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// IsFatal returns whether the error is considered fatal (unrecoverable).
// A generator that reported an error must not be used to produce a module.
func (e *StructuredError) IsFatal() bool {
	return true
}

// New creates a new StructuredError caused by the given sentinel, using the
// sentinel's text as the message.
func New(kind ErrorKind, cause error) *StructuredError {
	return &StructuredError{
		Message: cause.Error(),
		Kind:    kind,
		Cause:   cause,
	}
}

// Newf creates a new StructuredError with a formatted message.
func Newf(kind ErrorKind, cause error, format string, args ...any) *StructuredError {
	return &StructuredError{
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
		Cause:   cause,
	}
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// Is reports whether err is a StructuredError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
