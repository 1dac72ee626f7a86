package bytecode

import "fmt"

// ExceptionHandler describes a protected range of bytecode. Offsets are byte
// offsets into the owning function's opcode stream.
type ExceptionHandler struct {
	Start  uint32 // First protected byte
	End    uint32 // One past the last protected byte
	Target uint32 // Offset of the handler code
	Depth  uint32 // Nesting depth of the try block
}

// String returns a formatted representation of the handler.
func (h ExceptionHandler) String() string {
	return fmt.Sprintf("[%d, %d) -> %d (depth %d)", h.Start, h.End, h.Target, h.Depth)
}

// Contains returns true if offset lies within the protected range.
func (h ExceptionHandler) Contains(offset uint32) bool {
	return offset >= h.Start && offset < h.End
}
