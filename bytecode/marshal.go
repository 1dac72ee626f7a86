package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const stringStorageVersion = 1

// Serialization types

type stringEntryDef struct {
	Offset       uint32 `cbor:"1,keyasint"`
	Length       uint32 `cbor:"2,keyasint"`
	IsIdentifier bool   `cbor:"3,keyasint,omitempty"`
}

type stringStorageDef struct {
	Version          int              `cbor:"1,keyasint"`
	Storage          []byte           `cbor:"2,keyasint"`
	Entries          []stringEntryDef `cbor:"3,keyasint"`
	IdentifierHashes []uint32         `cbor:"4,keyasint,omitempty"`
}

// MarshalStringStorage serializes a StringStorage to CBOR bytes. The encoding
// is canonical, so equal tables always produce equal bytes.
func MarshalStringStorage(s *StringStorage) ([]byte, error) {
	def := stringStorageDef{
		Version:          stringStorageVersion,
		Storage:          s.storage,
		Entries:          make([]stringEntryDef, len(s.entries)),
		IdentifierHashes: s.identifierHashes,
	}
	for i, e := range s.entries {
		def.Entries[i] = stringEntryDef(e)
	}
	return cborEncMode.Marshal(&def)
}

// UnmarshalStringStorage deserializes a StringStorage from CBOR bytes.
func UnmarshalStringStorage(data []byte) (*StringStorage, error) {
	var def stringStorageDef
	if err := cbor.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal string storage: %w", err)
	}
	if def.Version != stringStorageVersion {
		return nil, fmt.Errorf("bytecode: unsupported string storage version %d", def.Version)
	}
	entries := make([]StringEntry, len(def.Entries))
	for i, e := range def.Entries {
		entries[i] = StringEntry(e)
	}
	s, err := NewStringStorage(StringStorageParams{
		Storage:          def.Storage,
		Entries:          entries,
		IdentifierHashes: def.IdentifierHashes,
	})
	if err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal string storage: %w", err)
	}
	return s, nil
}
