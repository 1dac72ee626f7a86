// Package bytecode provides immutable representations of assembled bytecode
// modules.
//
// This package defines the output of module generation: pure data structures
// holding the per-function instruction streams, the packed global tables and
// the debug metadata. These types are created once, when a module generator
// is consumed, and may be shared safely across goroutines afterwards.
//
// # Key Types
//
//   - [Module]: An immutable assembled module (functions, tables, buffers)
//   - [Function]: An immutable function record with its settled opcodes
//   - [StringStorage]: Packed string table (contiguous bytes plus an index)
//   - [RegExpStorage]: Packed compiled regular expressions
//   - [ExceptionHandler]: A protected bytecode range (value type)
//   - [DebugSourceLocation]: Maps an opcode offset to a source position (value type)
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction:
//
//   - No mutation methods exist on any type
//   - All fields are unexported
//   - Constructors copy input slices to prevent caller mutation
//   - Accessors return values or copies, never internal slices
//
// Index-based access is used for all collections:
//
//	module.FunctionAt(0)
//	module.Strings().At(i)
//	fn.ExceptionHandlerAt(j)
//
// # Package Dependencies
//
// This package depends only on [github.com/deepnoodle-ai/bcgen/op] so that the
// generator, the literal serializer and the disassembler can all share it.
package bytecode
