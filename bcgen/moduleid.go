package bcgen

import (
	"bytes"
	"encoding/binary"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/gofrs/uuid"
)

// moduleNamespace is the UUID namespace of content-derived module IDs.
var moduleNamespace = uuid.NewV5(uuid.NamespaceOID, "bcgen.module")

// contentHash accumulates a length-prefixed little-endian image of module
// content. Only fixed-size values are written, so encoding cannot fail.
type contentHash struct {
	buf bytes.Buffer
}

func (h *contentHash) write(v any) {
	if err := binary.Write(&h.buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func (h *contentHash) writeBytes(b []byte) {
	h.write(uint32(len(b)))
	h.buf.Write(b)
}

func (h *contentHash) writeString(s string) {
	h.write(uint32(len(s)))
	h.buf.WriteString(s)
}

func (h *contentHash) writeFunction(fn *bytecode.Function) {
	parent, hasParent := fn.LexicalParentID()
	h.write(struct {
		NameID, ParamCount, FrameSize, EnvironmentSize uint32
		ProhibitInvoke                                 bytecode.ProhibitInvoke
		StrictMode                                     bool
		BytecodeSize                                   uint32
		ReadCache, WriteCache                          uint8
		LexicalParentID                                uint32
		HasLexicalParent                               bool
	}{
		fn.NameID(), fn.ParamCount(), fn.FrameSize(), fn.EnvironmentSize(),
		fn.ProhibitInvoke(),
		fn.StrictMode(),
		fn.BytecodeSize(),
		fn.HighestReadCacheIndex(), fn.HighestWriteCacheIndex(),
		parent,
		hasParent,
	})
	// Opcodes include the jump table.
	h.writeBytes(fn.Opcodes())
	h.write(uint32(fn.ExceptionHandlerCount()))
	for i := 0; i < fn.ExceptionHandlerCount(); i++ {
		h.write(fn.ExceptionHandlerAt(i))
	}
	h.write(fn.SourceLocation())
	h.write(uint32(fn.DebugLocationCount()))
	for i := 0; i < fn.DebugLocationCount(); i++ {
		h.write(fn.DebugLocationAt(i))
	}
	h.write(uint32(fn.VariableNameCount()))
	for i := 0; i < fn.VariableNameCount(); i++ {
		h.writeString(fn.VariableNameAt(i))
	}
}

func (h *contentHash) writeStrings(s *bytecode.StringStorage) {
	h.write(uint32(s.Len()))
	for i := 0; i < s.Len(); i++ {
		h.writeString(s.At(i))
		h.write(s.IsIdentifier(i))
	}
}

// moduleID derives a stable identifier from everything the module exposes.
func moduleID(p *bytecode.ModuleParams) uuid.UUID {
	var h contentHash
	h.write(uint32(len(p.Functions)))
	for _, fn := range p.Functions {
		h.writeFunction(fn)
	}
	h.write(int64(p.EntryPoint))
	h.writeStrings(p.Strings)
	h.writeStrings(p.Filenames)
	h.write(uint32(p.RegExps.Len()))
	for i := 0; i < p.RegExps.Len(); i++ {
		h.writeBytes(p.RegExps.At(i))
	}
	h.write(uint32(len(p.CJSModules)))
	for _, c := range p.CJSModules {
		h.write(c)
	}
	h.write(p.CJSModuleOffset)
	h.write(uint32(len(p.CJSModulesStatic)))
	h.write(p.CJSModulesStatic)
	h.writeBytes(p.ArrayBuffer)
	h.writeBytes(p.ObjectKeyBuffer)
	h.writeBytes(p.ObjectValueBuffer)
	return uuid.NewV5(moduleNamespace, h.buf.String())
}
