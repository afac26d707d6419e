// ABOUTME: Insertion-ordered map with an optional bookmarked key
// ABOUTME: DefaultMap adds auto-vivification of missing keys through a factory

package bookmark

import (
	"fmt"
	"iter"
	"slices"

	"github.com/2389/coven-settings/internal/simple"
)

type entry[K, V any] struct {
	key   K
	value V
}

// Map is a mapping whose keys are compared by an identity function.
// At most one key may be bookmarked.
type Map[K, V any] struct {
	identity    func(K) string
	order       []string
	entries     map[string]entry[K, V]
	mark        Mark[K]
	decodeKey   func(any) (K, error)
	decodeValue func(any) (V, error)
}

// NewMap creates an empty Map. identity must return equal strings exactly
// for keys that denote the same entry.
func NewMap[K, V any](identity func(K) string) *Map[K, V] {
	return &Map[K, V]{
		identity:    identity,
		entries:     make(map[string]entry[K, V]),
		decodeKey:   simple.Decode[K],
		decodeValue: simple.Decode[V],
	}
}

// DecodeKeysWith overrides how keys are rebuilt from trees.
func (m *Map[K, V]) DecodeKeysWith(fn func(any) (K, error)) *Map[K, V] {
	m.decodeKey = fn
	return m
}

// DecodeValuesWith overrides how values are rebuilt from trees.
func (m *Map[K, V]) DecodeValuesWith(fn func(any) (V, error)) *Map[K, V] {
	m.decodeValue = fn
	return m
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	e, ok := m.entries[m.identity(k)]
	return e.value, ok
}

// Set stores v under k. An existing key keeps its position but takes the new key value.
func (m *Map[K, V]) Set(k K, v V) {
	id := m.identity(k)
	if _, ok := m.entries[id]; !ok {
		m.order = append(m.order, id)
	}
	m.entries[id] = entry[K, V]{key: k, value: v}
}

// Delete removes k and reports whether it was present. A bookmark on k is kept.
func (m *Map[K, V]) Delete(k K) bool {
	id := m.identity(k)
	if _, ok := m.entries[id]; !ok {
		return false
	}
	delete(m.entries, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return true
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.entries[m.identity(k)]
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

// Clear removes every entry. The bookmark is kept.
func (m *Map[K, V]) Clear() {
	m.order = nil
	m.entries = make(map[string]entry[K, V])
}

// Keys returns keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.order))
	for _, id := range m.order {
		keys = append(keys, m.entries[id].key)
	}
	return keys
}

// All iterates entries in insertion order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, id := range slices.Clone(m.order) {
			e, ok := m.entries[id]
			if !ok {
				continue
			}
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// SetBookmark marks k. k does not have to be present yet.
func (m *Map[K, V]) SetBookmark(k K) error {
	return m.mark.Set(k)
}

// UnsetBookmark clears the bookmark.
func (m *Map[K, V]) UnsetBookmark() {
	m.mark.Unset()
}

// Bookmark returns the value at the bookmarked key.
func (m *Map[K, V]) Bookmark() (V, error) {
	e, err := m.check()
	return e.value, err
}

// BookmarkKey returns the bookmarked key as stored in the map.
func (m *Map[K, V]) BookmarkKey() (K, error) {
	e, err := m.check()
	return e.key, err
}

func (m *Map[K, V]) check() (entry[K, V], error) {
	k, ok := m.mark.Get()
	if !ok {
		return entry[K, V]{}, fmt.Errorf("%w: unset", ErrNotFound)
	}
	e, ok := m.entries[m.identity(k)]
	if !ok {
		return entry[K, V]{}, fmt.Errorf("%w: key %q absent", ErrNotFound, m.identity(k))
	}
	return e, nil
}

// ToSimple returns {"bookmark": key|null, "content": [[key, value], ...]}.
func (m *Map[K, V]) ToSimple() any {
	content := make(simple.List, 0, len(m.order))
	for k, v := range m.All() {
		content = append(content, simple.List{simple.Encode(k), simple.Encode(v)})
	}
	var mark any
	if k, ok := m.mark.Get(); ok {
		mark = simple.Encode(k)
	}
	return simple.Map{"bookmark": mark, "content": content}
}

// UpdateFromSimple merges entries from a tree, then restores the bookmark.
// A bookmark naming an absent key is accepted.
func (m *Map[K, V]) UpdateFromSimple(tree any) error {
	obj, err := simple.AsMap(tree)
	if err != nil {
		return err
	}
	content, err := simple.AsList(obj["content"])
	if err != nil {
		return fmt.Errorf("map content: %w", err)
	}

	for i, raw := range content {
		pair, err := simple.AsList(raw)
		if err != nil {
			return fmt.Errorf("map entry %d: %w", i, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("map entry %d: %w: want [key, value], got %d items", i, simple.ErrShape, len(pair))
		}
		k, err := m.decodeKey(pair[0])
		if err != nil {
			return fmt.Errorf("map entry %d key: %w", i, err)
		}
		v, err := m.decodeValue(pair[1])
		if err != nil {
			return fmt.Errorf("map entry %d value: %w", i, err)
		}
		m.Set(k, v)
	}

	rawMark, ok := obj["bookmark"]
	if !ok || rawMark == nil {
		m.mark.Unset()
		return nil
	}
	k, err := m.decodeKey(rawMark)
	if err != nil {
		return fmt.Errorf("map bookmark: %w", err)
	}
	return m.mark.Set(k)
}

// DefaultMap is a Map that creates missing values on access.
type DefaultMap[K, V any] struct {
	*Map[K, V]
	factory func() V
}

// NewDefaultMap creates an empty DefaultMap. Values decoded from trees start
// from factory() when V implements simple.Unmarshaler.
func NewDefaultMap[K, V any](identity func(K) string, factory func() V) *DefaultMap[K, V] {
	d := &DefaultMap[K, V]{
		Map:     NewMap[K, V](identity),
		factory: factory,
	}
	d.decodeValue = func(tree any) (V, error) {
		v := factory()
		if u, ok := any(v).(simple.Unmarshaler); ok {
			if err := u.UpdateFromSimple(tree); err != nil {
				return v, err
			}
			return v, nil
		}
		return simple.Decode[V](tree)
	}
	return d
}

// At returns the value under k, storing factory() first if k is missing.
func (d *DefaultMap[K, V]) At(k K) V {
	if v, ok := d.Get(k); ok {
		return v
	}
	v := d.factory()
	d.Set(k, v)
	return v
}
