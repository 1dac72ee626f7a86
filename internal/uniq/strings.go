// Package uniq implements the uniquing tables of a module: strings, compiled
// regular expressions and filenames.
package uniq

import (
	"bytes"
	"sort"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/errz"
	"github.com/deepnoodle-ai/bcgen/internal/alloc"
	"github.com/zeebo/xxh3"
)

// StringTable assigns indices to distinct strings and tracks which of them
// are used as identifiers. Once a string is marked as an identifier it stays
// one.
type StringTable struct {
	strings     alloc.Table[string]
	identifiers []bool
}

// NewStringTable returns an empty StringTable.
func NewStringTable() *StringTable {
	return &StringTable{}
}

// Add returns the index of s, allocating one if needed. If isIdentifier is
// set, the entry is marked as an identifier.
func (t *StringTable) Add(s string, isIdentifier bool) uint32 {
	idx := t.strings.Allocate(s)
	if int(idx) == len(t.identifiers) {
		t.identifiers = append(t.identifiers, isIdentifier)
	} else if isIdentifier {
		t.identifiers[idx] = true
	}
	return idx
}

// Lookup returns the index of s without allocating.
func (t *StringTable) Lookup(s string) (uint32, bool) {
	return t.strings.Lookup(s)
}

// Len returns the number of strings in the table.
func (t *StringTable) Len() int {
	return t.strings.Len()
}

// At returns the string with the given index.
func (t *StringTable) At(index uint32) string {
	return t.strings.At(index)
}

// IsIdentifier returns true if the string with the given index is marked as
// an identifier.
func (t *StringTable) IsIdentifier(index uint32) bool {
	return t.identifiers[index]
}

// InitializeFromStorage seeds an empty table from previously packed storage,
// preserving every index and identifier flag. The storage is validated in
// full first; on error the table is left unchanged.
func (t *StringTable) InitializeFromStorage(s *bytecode.StringStorage) error {
	if s == nil {
		return errz.New(errz.ErrInternal, errz.ErrNilStringStorage)
	}
	if t.Len() > 0 {
		return errz.Newf(errz.ErrProtocol, errz.ErrStringTableNotEmpty,
			"cannot initialize string table holding %d entries", t.Len())
	}
	strs := s.Strings()
	seen := make(map[string]int, len(strs))
	for i, str := range strs {
		if first, ok := seen[str]; ok {
			return errz.Newf(errz.ErrInternal, errz.ErrDuplicateString,
				"duplicate string %q at index %d (first seen at %d)", str, i, first)
		}
		seen[str] = i
	}
	for i, str := range strs {
		t.Add(str, s.IsIdentifier(i))
	}
	return nil
}

// Pack lays the table out in contiguous storage. With optimize set, strings
// are placed longest first and any string already present as a substring of
// the storage reuses those bytes. An empty table packs as a single empty
// string so that index 0 is always valid.
func (t *StringTable) Pack(optimize bool) *bytecode.StringStorage {
	if t.Len() == 0 {
		s, _ := bytecode.NewStringStorage(bytecode.StringStorageParams{
			Entries: []bytecode.StringEntry{{}},
		})
		return s
	}
	strs := t.strings.Elements()
	entries := make([]bytecode.StringEntry, len(strs))
	var storage []byte
	if optimize {
		order := make([]int, len(strs))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return len(strs[order[a]]) > len(strs[order[b]])
		})
		for _, i := range order {
			s := strs[i]
			offset := bytes.Index(storage, []byte(s))
			if offset < 0 {
				offset = len(storage)
				storage = append(storage, s...)
			}
			entries[i] = bytecode.StringEntry{Offset: uint32(offset), Length: uint32(len(s))}
		}
	} else {
		for i, s := range strs {
			entries[i] = bytecode.StringEntry{Offset: uint32(len(storage)), Length: uint32(len(s))}
			storage = append(storage, s...)
		}
	}
	var hashes []uint32
	for i, s := range strs {
		if t.identifiers[i] {
			entries[i].IsIdentifier = true
			hashes = append(hashes, IdentifierHash(s))
		}
	}
	packed, err := bytecode.NewStringStorage(bytecode.StringStorageParams{
		Storage:          storage,
		Entries:          entries,
		IdentifierHashes: hashes,
	})
	if err != nil {
		panic(err)
	}
	return packed
}

// IdentifierHash returns the hash recorded for an identifier string.
func IdentifierHash(s string) uint32 {
	return uint32(xxh3.HashString(s))
}
