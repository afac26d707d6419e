// ABOUTME: Insertion-ordered set with an optional bookmarked element
// ABOUTME: Elements are compared by identity; the bookmark stores the element itself

package bookmark

import (
	"fmt"
	"iter"
	"slices"

	"github.com/2389/coven-settings/internal/simple"
)

// Self is the identity function for string elements.
func Self(s string) string {
	return s
}

// Set is a collection of unique elements with at most one bookmarked element.
type Set[T any] struct {
	identity func(T) string
	order    []string
	items    map[string]T
	mark     Mark[T]
	decode   func(any) (T, error)
}

// NewSet creates an empty Set. identity must return equal strings exactly
// for elements that are the same element.
func NewSet[T any](identity func(T) string) *Set[T] {
	return &Set[T]{
		identity: identity,
		items:    make(map[string]T),
		decode:   simple.Decode[T],
	}
}

// NewStringSet creates an empty Set of strings.
func NewStringSet() *Set[string] {
	return NewSet(Self)
}

// DecodeWith overrides how elements are rebuilt from trees.
func (s *Set[T]) DecodeWith(fn func(any) (T, error)) *Set[T] {
	s.decode = fn
	return s
}

// Add inserts v and reports whether it was new. An existing element is left untouched.
func (s *Set[T]) Add(v T) bool {
	id := s.identity(v)
	if _, ok := s.items[id]; ok {
		return false
	}
	s.items[id] = v
	s.order = append(s.order, id)
	return true
}

// Replace stores v over the element with the same identity, keeping its
// position. It reports whether such an element existed; if not, v is added.
func (s *Set[T]) Replace(v T) bool {
	id := s.identity(v)
	_, existed := s.items[id]
	if !existed {
		s.order = append(s.order, id)
	}
	s.items[id] = v
	return existed
}

// Remove deletes v and reports whether it was present. A bookmark on v is kept.
func (s *Set[T]) Remove(v T) bool {
	id := s.identity(v)
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return true
}

// Has reports whether an element with v's identity is present.
func (s *Set[T]) Has(v T) bool {
	_, ok := s.items[s.identity(v)]
	return ok
}

// Lookup returns the stored element with v's identity.
func (s *Set[T]) Lookup(v T) (T, bool) {
	got, ok := s.items[s.identity(v)]
	return got, ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Clear removes every element. The bookmark is kept.
func (s *Set[T]) Clear() {
	s.order = nil
	s.items = make(map[string]T)
}

// Values returns elements in insertion order.
func (s *Set[T]) Values() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// All iterates elements in insertion order.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, id := range slices.Clone(s.order) {
			v, ok := s.items[id]
			if !ok {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Identity returns the identity of v as used by this set.
func (s *Set[T]) Identity(v T) string {
	return s.identity(v)
}

// SetBookmark marks v. v does not have to be a member yet.
func (s *Set[T]) SetBookmark(v T) error {
	return s.mark.Set(v)
}

// UnsetBookmark clears the bookmark.
func (s *Set[T]) UnsetBookmark() {
	s.mark.Unset()
}

// Bookmark returns the bookmarked element if it is still a member.
func (s *Set[T]) Bookmark() (T, error) {
	return s.check()
}

func (s *Set[T]) check() (T, error) {
	v, ok := s.mark.Get()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: unset", ErrNotFound)
	}
	got, ok := s.items[s.identity(v)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: element %q absent", ErrNotFound, s.identity(v))
	}
	return got, nil
}

// ToSimple returns {"bookmark": value|null, "content": [value, ...]}.
func (s *Set[T]) ToSimple() any {
	content := make(simple.List, 0, len(s.order))
	for v := range s.All() {
		content = append(content, simple.Encode(v))
	}
	var mark any
	if v, ok := s.mark.Get(); ok {
		mark = simple.Encode(v)
	}
	return simple.Map{"bookmark": mark, "content": content}
}

// UpdateFromSimple merges elements from a tree, then restores the bookmark.
// A bookmark naming an absent element is accepted.
func (s *Set[T]) UpdateFromSimple(tree any) error {
	obj, err := simple.AsMap(tree)
	if err != nil {
		return err
	}
	content, err := simple.AsList(obj["content"])
	if err != nil {
		return fmt.Errorf("set content: %w", err)
	}

	for i, raw := range content {
		v, err := s.decode(raw)
		if err != nil {
			return fmt.Errorf("set element %d: %w", i, err)
		}
		s.Replace(v)
	}

	rawMark, ok := obj["bookmark"]
	if !ok || rawMark == nil {
		s.mark.Unset()
		return nil
	}
	v, err := s.decode(rawMark)
	if err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	return s.mark.Set(v)
}
