// Package patch provides a tri-state JSON field for partial updates.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field distinguishes an absent JSON key (Set=false), an explicit null
// (Set=true, Null=true) and a value (Set=true, Null=false).
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] { return Field[T]{Set: true, Value: v} }

// Null returns an explicitly cleared Field.
func Null[T any]() Field[T] { return Field[T]{Set: true, Null: true} }

// UnmarshalJSON is only invoked when the key is present.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(b, &f.Value)
}

// HasValue reports whether a non-null value was supplied.
func (f Field[T]) HasValue() bool { return f.Set && !f.Null }
