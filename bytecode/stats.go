package bytecode

// Stats contains statistics about an assembled module.
// This is useful for auditing module size before serialization.
type Stats struct {
	// FunctionCount is the number of functions in the module.
	FunctionCount int

	// InstructionSize is the total size of all instruction streams in bytes,
	// excluding jump tables.
	InstructionSize int

	// JumpTableEntries is the total number of switch jump table entries.
	JumpTableEntries int

	// HandlerCount is the total number of exception handlers.
	HandlerCount int

	// StringCount is the number of entries in the string table.
	StringCount int

	// StringBytes is the size of the packed string storage in bytes.
	StringBytes int

	// RegExpCount is the number of compiled regular expressions.
	RegExpCount int

	// FilenameCount is the number of entries in the filename table.
	FilenameCount int

	// CJSModuleCount is the number of CommonJS modules, static and dynamic.
	CJSModuleCount int

	// LiteralBytes is the combined size of the three literal buffers.
	LiteralBytes int
}
