package bytecode

import "fmt"

// DebugSourceLocation maps a bytecode address to a position in source code.
// For a function's definition site, Address is unused.
type DebugSourceLocation struct {
	Address    uint32 // Byte offset of the opcode
	FilenameID uint32 // Index into the module's filename table
	Line       uint32 // 1-based line number
	Column     uint32 // 1-based column number
	Statement  uint32 // Statement counter, 0 if unknown
}

// String returns a formatted string representation of the source location.
func (s DebugSourceLocation) String() string {
	return fmt.Sprintf("%d:%d:%d@%d", s.FilenameID, s.Line, s.Column, s.Address)
}

// IsZero returns true if the location has not been set.
func (s DebugSourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}
