package model

import (
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/petrisync/pkg/errors"
)

// Listener receives model notifications.
type Listener interface {
	Notify(op Op, r Record)
}

// ListenerFunc adapts a function to [Listener].
type ListenerFunc func(op Op, r Record)

// Notify calls f(op, r).
func (f ListenerFunc) Notify(op Op, r Record) { f(op, r) }

// SetCall is one write-back recorded by the store journal.
type SetCall struct {
	ID    string
	Field string
	Value any
}

// Store is an in-memory authoritative model.
//
// Listeners are called synchronously, outside the store lock, in the
// order they subscribed. A listener may call back into the store.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	order     []string
	children  map[string]*Entry
	listeners map[int]Listener
	nextSub   int
	journal   []SetCall
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entries:   make(map[string]*Entry),
		children:  make(map[string]*Entry),
		listeners: make(map[int]Listener),
	}
}

// Entry is one model entity held by a [Store]. It implements [Record].
type Entry struct {
	store  *Store
	id     string
	parent string
	fields map[string]any
}

// ID returns the entity id.
func (e *Entry) ID() string { return e.id }

// Get returns the current value of field.
func (e *Entry) Get(field string) (any, bool) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	v, ok := e.fields[field]
	return v, ok
}

// Set writes field and notifies listeners with an update. Setting a field
// on a form element notifies an update of the owning form.
func (e *Entry) Set(field string, value any) error {
	return e.store.set(e, field, value)
}

// Fields returns a copy of the entry's fields.
func (e *Entry) Fields() map[string]any {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return exportFields(e.fields)
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Add inserts a new entity and notifies listeners. An empty id is
// replaced by a fresh one. Form elements given as maps under "elements"
// become addressable child entries.
func (s *Store) Add(id string, fields map[string]any) (*Entry, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := errors.ValidateEntityID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, exists := s.entries[id]; exists {
		s.mu.Unlock()
		return nil, errors.New(errors.ErrCodeInvalidInput, "entity %s already exists", id)
	}
	e := &Entry{store: s, id: id, fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	if err := s.adoptElements(e); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.entries[id] = e
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.notify(OpAdd, e)
	return e, nil
}

// Create implements the publisher used for provisional entities: it adds
// an entity of the given type with a fresh id.
func (s *Store) Create(typ Type, fields map[string]any) (string, error) {
	f := maps.Clone(fields)
	if f == nil {
		f = make(map[string]any)
	}
	f[FieldType] = string(typ)
	e, err := s.Add("", f)
	if err != nil {
		return "", err
	}
	return e.id, nil
}

// Update merges fields into an existing entity and notifies listeners.
func (s *Store) Update(id string, fields map[string]any) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "entity %s not found", id)
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	if _, ok := fields[FieldElements]; ok {
		if err := s.adoptElements(e); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	s.notify(OpUpdate, e)
	return nil
}

// Remove deletes an entity and notifies listeners. Arcs touching a
// removed node are left alone; removing them is the model's decision.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "entity %s not found", id)
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	for cid, c := range s.children {
		if c.parent == id {
			delete(s.children, cid)
		}
	}
	s.mu.Unlock()

	s.notify(OpRemove, e)
	return nil
}

// Get returns the entity with the given id.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Len returns the number of top-level entities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Entries returns all top-level entities in insertion order.
func (s *Store) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// Replay sends an add notification for every entity to l: nodes first,
// then arcs, then everything else, each group in insertion order.
func (s *Store) Replay(l Listener) {
	entries := s.Entries()
	rank := func(e *Entry) int {
		v, _ := e.Get(FieldType)
		switch Type(Stringify(v)) {
		case TypePlace, TypeTransition:
			return 0
		case TypeArc:
			return 1
		}
		return 2
	}
	slices.SortStableFunc(entries, func(a, b *Entry) int { return rank(a) - rank(b) })
	for _, e := range entries {
		l.Notify(OpAdd, e)
	}
}

// Set writes field on the entity or form element with the given id, as if
// the caller held its handle.
func (s *Store) Set(id, field string, value any) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e, ok = s.children[id]
	}
	s.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "entity %s not found", id)
	}
	return e.Set(field, value)
}

// Journal returns every Set call made through store entries.
func (s *Store) Journal() []SetCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.journal)
}

func (s *Store) set(e *Entry, field string, value any) error {
	s.mu.Lock()
	if e.parent == "" {
		if _, ok := s.entries[e.id]; !ok {
			s.mu.Unlock()
			return errors.New(errors.ErrCodeNotFound, "entity %s not found", e.id)
		}
	}
	e.fields[field] = value
	s.journal = append(s.journal, SetCall{ID: e.id, Field: field, Value: value})
	target := e
	if e.parent != "" {
		target = s.entries[e.parent]
	}
	s.mu.Unlock()

	if target != nil {
		s.notify(OpUpdate, target)
	}
	return nil
}

// adoptElements turns element maps of a form into child entries. The
// caller holds s.mu.
func (s *Store) adoptElements(e *Entry) error {
	raw, ok := e.fields[FieldElements]
	if !ok || raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		if ms, isMaps := raw.([]map[string]any); isMaps {
			for _, m := range ms {
				items = append(items, m)
			}
		} else {
			return errors.New(errors.ErrCodeInvalidInput, "form %s: elements must be a list", e.id)
		}
	}
	adopted := make([]any, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case *Entry:
			adopted = append(adopted, v)
		case map[string]any:
			cid := Stringify(v["id"])
			if cid == "" {
				cid = uuid.NewString()
			}
			child := &Entry{store: s, id: cid, parent: e.id, fields: make(map[string]any, len(v))}
			for k, fv := range v {
				if k != "id" {
					child.fields[k] = fv
				}
			}
			s.children[cid] = child
			adopted = append(adopted, child)
		default:
			return errors.New(errors.ErrCodeInvalidInput, "form %s: element %d is not a map", e.id, i)
		}
	}
	e.fields[FieldElements] = adopted
	return nil
}

func (s *Store) notify(op Op, e *Entry) {
	s.mu.Lock()
	keys := slices.Sorted(maps.Keys(s.listeners))
	ls := make([]Listener, 0, len(keys))
	for _, k := range keys {
		ls = append(ls, s.listeners[k])
	}
	s.mu.Unlock()
	for _, l := range ls {
		l.Notify(op, e)
	}
}

// exportFields copies fields, flattening child entries back into maps.
func exportFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if items, ok := v.([]any); ok && k == FieldElements {
			elems := make([]any, 0, len(items))
			for _, it := range items {
				if c, ok := it.(*Entry); ok {
					m := maps.Clone(c.fields)
					m["id"] = c.id
					elems = append(elems, m)
					continue
				}
				elems = append(elems, it)
			}
			out[k] = elems
			continue
		}
		out[k] = v
	}
	return out
}
