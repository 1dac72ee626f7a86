// Package alloc provides a deduplicating allocation table that assigns dense,
// stable indices to values.
package alloc

// Table assigns each distinct value a zero-based index in the order values
// are first seen. Indices never change and entries are never removed.
type Table[T comparable] struct {
	indices  map[T]uint32
	elements []T
}

// New returns an empty Table.
func New[T comparable]() *Table[T] {
	return &Table[T]{indices: map[T]uint32{}}
}

// Allocate returns the index of v, assigning the next free index if v has
// not been seen before.
func (t *Table[T]) Allocate(v T) uint32 {
	if t.indices == nil {
		t.indices = map[T]uint32{}
	}
	if idx, ok := t.indices[v]; ok {
		return idx
	}
	idx := uint32(len(t.elements))
	t.indices[v] = idx
	t.elements = append(t.elements, v)
	return idx
}

// Lookup returns the index of v without allocating.
func (t *Table[T]) Lookup(v T) (uint32, bool) {
	idx, ok := t.indices[v]
	return idx, ok
}

// Len returns the number of allocated values.
func (t *Table[T]) Len() int {
	return len(t.elements)
}

// At returns the value with the given index.
func (t *Table[T]) At(index uint32) T {
	return t.elements[index]
}

// Elements returns the allocated values in index order.
func (t *Table[T]) Elements() []T {
	out := make([]T, len(t.elements))
	copy(out, t.elements)
	return out
}
