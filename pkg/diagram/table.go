package diagram

import (
	"slices"

	"github.com/matzehuels/petrisync/pkg/errors"
)

// Table is an entity index: a compact slice of slots addressed by
// external id.
type Table[T any] struct {
	items []T
	index map[string]int
	idOf  func(T) string
}

// NewTable returns an empty table. idOf reports the id stored in a slot
// and is used by [Table.Check].
func NewTable[T any](idOf func(T) string) *Table[T] {
	return &Table[T]{index: make(map[string]int), idOf: idOf}
}

// Upsert returns the slot for id. When id is absent, newSlot is called,
// its result is appended and created is true. When present, the existing
// slot is returned for in-place mutation.
func (t *Table[T]) Upsert(id string, newSlot func() T) (slot T, created bool) {
	if i, ok := t.index[id]; ok {
		return t.items[i], false
	}
	slot = newSlot()
	t.items = append(t.items, slot)
	t.index[id] = len(t.items) - 1
	return slot, true
}

// Remove erases the slot for id and shifts every later slot down by one.
func (t *Table[T]) Remove(id string) (T, bool) {
	i, ok := t.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	removed := t.items[i]
	t.items = slices.Delete(t.items, i, i+1)
	for k, j := range t.index {
		if j > i {
			t.index[k] = j - 1
		}
	}
	delete(t.index, id)
	return removed, true
}

// Get returns the slot for id.
func (t *Table[T]) Get(id string) (T, bool) {
	i, ok := t.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.items[i], true
}

// Index returns the slot number of id.
func (t *Table[T]) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Has reports whether id is present.
func (t *Table[T]) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Slot returns the entity at slot i.
func (t *Table[T]) Slot(i int) T { return t.items[i] }

// Items returns the backing slice in render order. Callers must not
// modify it; it is invalidated by the next Upsert or Remove.
func (t *Table[T]) Items() []T { return t.items }

// Len returns the number of slots.
func (t *Table[T]) Len() int { return len(t.items) }

// IDs returns the ids in slot order.
func (t *Table[T]) IDs() []string {
	ids := make([]string, len(t.items))
	for i, it := range t.items {
		ids[i] = t.idOf(it)
	}
	return ids
}

// Check verifies that the map and the slice agree. A failure means the
// index was mutated outside Upsert and Remove.
func (t *Table[T]) Check() error {
	if len(t.index) != len(t.items) {
		return errors.New(errors.ErrCodeIndexCorruption,
			"index has %d entries for %d slots", len(t.index), len(t.items))
	}
	for id, i := range t.index {
		if i < 0 || i >= len(t.items) {
			return errors.New(errors.ErrCodeIndexCorruption, "id %s maps past the end (slot %d)", id, i)
		}
		if got := t.idOf(t.items[i]); got != id {
			return errors.New(errors.ErrCodeIndexCorruption, "id %s maps to slot %d holding %s", id, i, got)
		}
	}
	return nil
}
