package bytecode

import "fmt"

// StringEntry locates one string within a packed StringStorage.
type StringEntry struct {
	Offset       uint32
	Length       uint32
	IsIdentifier bool
}

// StringStorage is a packed string table: every string's bytes live in one
// contiguous buffer and each index maps to an (offset, length) pair. Entries
// may overlap when the table was packed with optimization enabled.
type StringStorage struct {
	storage          []byte
	entries          []StringEntry
	identifierHashes []uint32
}

// StringStorageParams contains parameters for creating a new StringStorage.
type StringStorageParams struct {
	Storage []byte
	Entries []StringEntry

	// IdentifierHashes holds one hash per identifier entry, in index order.
	IdentifierHashes []uint32
}

// NewStringStorage creates a new immutable StringStorage. It returns an error
// if an entry references bytes outside of the storage buffer.
func NewStringStorage(params StringStorageParams) (*StringStorage, error) {
	size := uint64(len(params.Storage))
	identifiers := 0
	for i, e := range params.Entries {
		if uint64(e.Offset)+uint64(e.Length) > size {
			return nil, fmt.Errorf("string entry %d out of range: [%d, %d) exceeds storage size %d",
				i, e.Offset, uint64(e.Offset)+uint64(e.Length), size)
		}
		if e.IsIdentifier {
			identifiers++
		}
	}
	if params.IdentifierHashes != nil && len(params.IdentifierHashes) != identifiers {
		return nil, fmt.Errorf("identifier hash count %d does not match identifier count %d",
			len(params.IdentifierHashes), identifiers)
	}
	return &StringStorage{
		storage:          copySlice(params.Storage),
		entries:          copySlice(params.Entries),
		identifierHashes: copySlice(params.IdentifierHashes),
	}, nil
}

// Len returns the number of strings in the table.
func (s *StringStorage) Len() int {
	return len(s.entries)
}

// At returns the string at the given index.
func (s *StringStorage) At(index int) string {
	e := s.entries[index]
	return string(s.storage[e.Offset : e.Offset+e.Length])
}

// EntryAt returns the storage entry at the given index.
func (s *StringStorage) EntryAt(index int) StringEntry {
	return s.entries[index]
}

// IsIdentifier returns true if the string at the given index is used as an
// identifier somewhere in the module.
func (s *StringStorage) IsIdentifier(index int) bool {
	return s.entries[index].IsIdentifier
}

// Storage returns a copy of the contiguous string bytes.
func (s *StringStorage) Storage() []byte {
	return copySlice(s.storage)
}

// StorageSize returns the size of the contiguous string bytes.
func (s *StringStorage) StorageSize() int {
	return len(s.storage)
}

// IdentifierHashes returns a copy of the identifier hashes.
func (s *StringStorage) IdentifierHashes() []uint32 {
	return copySlice(s.identifierHashes)
}

// Strings returns all strings in index order.
func (s *StringStorage) Strings() []string {
	out := make([]string, len(s.entries))
	for i := range s.entries {
		out[i] = s.At(i)
	}
	return out
}

// RegExp is a compiled regular expression. Two regexps are the same entry
// when both pattern and flags are equal.
type RegExp struct {
	Pattern  string
	Flags    string
	Bytecode []byte
}

// String returns the regexp in literal form.
func (r RegExp) String() string {
	return "/" + r.Pattern + "/" + r.Flags
}

// RegExpEntry locates one compiled regexp within a RegExpStorage.
type RegExpEntry struct {
	Offset uint32
	Length uint32
}

// RegExpStorage holds the compiled bytecode of every regexp in the module,
// concatenated in index order.
type RegExpStorage struct {
	storage []byte
	entries []RegExpEntry
}

// NewRegExpStorage creates a new immutable RegExpStorage.
func NewRegExpStorage(storage []byte, entries []RegExpEntry) *RegExpStorage {
	return &RegExpStorage{
		storage: copySlice(storage),
		entries: copySlice(entries),
	}
}

// Len returns the number of regexps.
func (r *RegExpStorage) Len() int {
	return len(r.entries)
}

// EntryAt returns the storage entry at the given index.
func (r *RegExpStorage) EntryAt(index int) RegExpEntry {
	return r.entries[index]
}

// At returns a copy of the compiled bytecode at the given index.
func (r *RegExpStorage) At(index int) []byte {
	e := r.entries[index]
	return copySlice(r.storage[e.Offset : e.Offset+e.Length])
}

// Storage returns a copy of the concatenated regexp bytecode.
func (r *RegExpStorage) Storage() []byte {
	return copySlice(r.storage)
}
