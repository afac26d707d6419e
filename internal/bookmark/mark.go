// ABOUTME: Single optional marker shared by every bookmarked container
// ABOUTME: Holds the marked key or value; validity is checked by the owning container on read

package bookmark

import (
	"errors"
	"reflect"
)

// ErrNotFound is returned when a bookmark is unset or points at an absent entry.
var ErrNotFound = errors.New("bookmark not found")

// ErrNilBookmark is returned when nil is passed as a bookmark. Nil means "unset".
var ErrNilBookmark = errors.New("nil is not a valid bookmark")

// Mark holds at most one marked value. The zero Mark is unset.
type Mark[T any] struct {
	value T
	set   bool
}

// Set marks v. Presence in the owning container is not checked here.
func (m *Mark[T]) Set(v T) error {
	if isNil(v) {
		return ErrNilBookmark
	}
	m.value = v
	m.set = true
	return nil
}

// Unset clears the mark.
func (m *Mark[T]) Unset() {
	var zero T
	m.value = zero
	m.set = false
}

// Get returns the marked value and whether one is set.
func (m *Mark[T]) Get() (T, bool) {
	return m.value, m.set
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
