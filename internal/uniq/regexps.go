package uniq

import (
	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/internal/alloc"
)

type regexpKey struct {
	pattern string
	flags   string
}

// RegExpTable assigns indices to distinct regular expressions. Two regexps
// are the same entry when their pattern and flags match; the compiled
// bytecode of the first one added is kept.
type RegExpTable struct {
	keys     alloc.Table[regexpKey]
	compiled [][]byte
}

// NewRegExpTable returns an empty RegExpTable.
func NewRegExpTable() *RegExpTable {
	return &RegExpTable{}
}

// Add returns the index of re, allocating one if needed.
func (t *RegExpTable) Add(re bytecode.RegExp) uint32 {
	idx := t.keys.Allocate(regexpKey{pattern: re.Pattern, flags: re.Flags})
	if int(idx) == len(t.compiled) {
		t.compiled = append(t.compiled, append([]byte(nil), re.Bytecode...))
	}
	return idx
}

// Len returns the number of regexps in the table.
func (t *RegExpTable) Len() int {
	return t.keys.Len()
}

// At returns the regexp with the given index.
func (t *RegExpTable) At(index uint32) bytecode.RegExp {
	k := t.keys.At(index)
	return bytecode.RegExp{Pattern: k.pattern, Flags: k.flags, Bytecode: t.compiled[index]}
}

// Pack concatenates the compiled bytecode of every regexp in index order.
func (t *RegExpTable) Pack() *bytecode.RegExpStorage {
	var storage []byte
	entries := make([]bytecode.RegExpEntry, len(t.compiled))
	for i, b := range t.compiled {
		entries[i] = bytecode.RegExpEntry{Offset: uint32(len(storage)), Length: uint32(len(b))}
		storage = append(storage, b...)
	}
	return bytecode.NewRegExpStorage(storage, entries)
}
