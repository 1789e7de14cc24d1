package model

// Optional holds a value that the model may or may not have supplied.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, ok: true} }

// None returns an empty Optional.
func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool { return o.ok }

// Or returns the value, or def when none was supplied.
func (o Optional[T]) Or(def T) T {
	if o.ok {
		return o.value
	}
	return def
}
