package bytecode

import "github.com/gofrs/uuid"

// CJSModule associates a CommonJS module name with the function that
// implements it.
type CJSModule struct {
	NameID     uint32
	FunctionID uint32
}

// NoEntryPoint is the entry point index of a module with no designated
// global function.
const NoEntryPoint = -1

// Module is an assembled bytecode module. It is immutable after creation.
type Module struct {
	id                uuid.UUID
	functions         []*Function
	entryPoint        int
	strings           *StringStorage
	regexps           *RegExpStorage
	filenames         *StringStorage
	cjsModules        []CJSModule
	cjsModulesStatic  []uint32
	cjsModuleOffset   uint32
	arrayBuffer       []byte
	objectKeyBuffer   []byte
	objectValueBuffer []byte
}

// ModuleParams contains parameters for creating a new Module.
type ModuleParams struct {
	ID                uuid.UUID
	Functions         []*Function
	EntryPoint        int
	Strings           *StringStorage
	RegExps           *RegExpStorage
	Filenames         *StringStorage
	CJSModules        []CJSModule
	CJSModulesStatic  []uint32
	CJSModuleOffset   uint32
	ArrayBuffer       []byte
	ObjectKeyBuffer   []byte
	ObjectValueBuffer []byte
}

// NewModule creates a new immutable Module from the given parameters.
func NewModule(params ModuleParams) *Module {
	return &Module{
		id:                params.ID,
		functions:         copySlice(params.Functions),
		entryPoint:        params.EntryPoint,
		strings:           params.Strings,
		regexps:           params.RegExps,
		filenames:         params.Filenames,
		cjsModules:        copySlice(params.CJSModules),
		cjsModulesStatic:  copySlice(params.CJSModulesStatic),
		cjsModuleOffset:   params.CJSModuleOffset,
		arrayBuffer:       copySlice(params.ArrayBuffer),
		objectKeyBuffer:   copySlice(params.ObjectKeyBuffer),
		objectValueBuffer: copySlice(params.ObjectValueBuffer),
	}
}

// ID returns the module's content-derived identifier.
func (m *Module) ID() uuid.UUID {
	return m.id
}

// FunctionCount returns the number of functions in the module.
func (m *Module) FunctionCount() int {
	return len(m.functions)
}

// FunctionAt returns the function with the given ID.
func (m *Module) FunctionAt(index int) *Function {
	return m.functions[index]
}

// EntryPoint returns the ID of the global function, or NoEntryPoint.
func (m *Module) EntryPoint() int {
	return m.entryPoint
}

// Strings returns the packed string table.
func (m *Module) Strings() *StringStorage {
	return m.strings
}

// RegExps returns the packed regexp table.
func (m *Module) RegExps() *RegExpStorage {
	return m.regexps
}

// Filenames returns the packed filename table.
func (m *Module) Filenames() *StringStorage {
	return m.filenames
}

// CJSModuleCount returns the number of dynamically named CommonJS modules.
func (m *Module) CJSModuleCount() int {
	return len(m.cjsModules)
}

// CJSModuleAt returns the dynamically named CommonJS module at index.
func (m *Module) CJSModuleAt(index int) CJSModule {
	return m.cjsModules[index]
}

// CJSModuleStaticCount returns the number of statically resolved CommonJS
// modules.
func (m *Module) CJSModuleStaticCount() int {
	return len(m.cjsModulesStatic)
}

// CJSModuleStaticAt returns the function ID of the static module at index.
// The module's ordinal is CJSModuleOffset() + index.
func (m *Module) CJSModuleStaticAt(index int) uint32 {
	return m.cjsModulesStatic[index]
}

// CJSModuleOffset returns the ordinal of the first static CommonJS module.
func (m *Module) CJSModuleOffset() uint32 {
	return m.cjsModuleOffset
}

// ArrayBuffer returns a copy of the serialized array literal buffer.
func (m *Module) ArrayBuffer() []byte {
	return copySlice(m.arrayBuffer)
}

// ObjectKeyBuffer returns a copy of the serialized object key buffer.
func (m *Module) ObjectKeyBuffer() []byte {
	return copySlice(m.objectKeyBuffer)
}

// ObjectValueBuffer returns a copy of the serialized object value buffer.
func (m *Module) ObjectValueBuffer() []byte {
	return copySlice(m.objectValueBuffer)
}

// Stats returns statistics about the module.
func (m *Module) Stats() Stats {
	stats := Stats{
		FunctionCount:  len(m.functions),
		StringCount:    m.strings.Len(),
		StringBytes:    m.strings.StorageSize(),
		RegExpCount:    m.regexps.Len(),
		FilenameCount:  m.filenames.Len(),
		CJSModuleCount: len(m.cjsModules) + len(m.cjsModulesStatic),
		LiteralBytes:   len(m.arrayBuffer) + len(m.objectKeyBuffer) + len(m.objectValueBuffer),
	}
	for _, fn := range m.functions {
		stats.InstructionSize += int(fn.BytecodeSize())
		stats.HandlerCount += fn.ExceptionHandlerCount()
		stats.JumpTableEntries += fn.JumpTableCount()
	}
	return stats
}
