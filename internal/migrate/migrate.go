// ABOUTME: Table-driven migrator for versioned JSON documents
// ABOUTME: Upgrades {meta:{format_version}, content} trees until no migration is registered

package migrate

import (
	"errors"
	"fmt"

	"github.com/2389/coven-settings/internal/simple"
)

const (
	metaKey    = "meta"
	versionKey = "format_version"
	contentKey = "content"
)

// ErrMissingVersion is returned when a document has no usable meta.format_version.
var ErrMissingVersion = errors.New("missing format version")

// ErrMissingContent is returned when a document has no content payload.
var ErrMissingContent = errors.New("missing content")

// ErrNotMonotonic is returned when a migration does not raise the version.
// Applying such a migration again would never terminate.
var ErrNotMonotonic = errors.New("migration did not increase format version")

// Func converts a document at one version into a document at a higher version.
// Funcs must be pure: the input document may be reused by the caller.
type Func func(doc simple.Map) (simple.Map, error)

// Migrator holds migrations keyed by the version they upgrade from.
type Migrator struct {
	steps map[int]Func
}

// New creates a Migrator from a version -> migration table.
// A nil or empty table is valid: every versioned document is then current.
func New(steps map[int]Func) *Migrator {
	m := &Migrator{steps: make(map[int]Func, len(steps))}
	for v, fn := range steps {
		m.steps[v] = fn
	}
	return m
}

// Register adds or replaces the migration from version v.
func (m *Migrator) Register(v int, fn Func) {
	m.steps[v] = fn
}

// Registered reports whether a migration from version v exists.
func (m *Migrator) Registered(v int) bool {
	_, ok := m.steps[v]
	return ok
}

// Migrate applies registered migrations until the document reaches a version
// with no migration. The returned document is current.
func (m *Migrator) Migrate(doc simple.Map) (simple.Map, error) {
	current, err := Version(doc)
	if err != nil {
		return nil, err
	}

	for {
		fn, ok := m.steps[current]
		if !ok {
			return doc, nil
		}

		next, err := fn(doc)
		if err != nil {
			return nil, fmt.Errorf("migrating from version %d: %w", current, err)
		}

		nextVersion, err := Version(next)
		if err != nil {
			return nil, fmt.Errorf("migrating from version %d: %w", current, err)
		}
		if nextVersion <= current {
			return nil, fmt.Errorf("%w: %d -> %d", ErrNotMonotonic, current, nextVersion)
		}

		doc, current = next, nextVersion
	}
}

// Version reads meta.format_version from a document.
func Version(doc simple.Map) (int, error) {
	rawMeta, ok := doc[metaKey]
	if !ok {
		return 0, fmt.Errorf("%w: no %q object", ErrMissingVersion, metaKey)
	}
	meta, err := simple.AsMap(rawMeta)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingVersion, err)
	}
	rawVersion, ok := meta[versionKey]
	if !ok {
		return 0, fmt.Errorf("%w: no %q key", ErrMissingVersion, versionKey)
	}
	v, err := simple.AsInt(rawVersion)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingVersion, err)
	}
	return v, nil
}

// Envelope wraps content in a versioned document.
func Envelope(version int, content any) simple.Map {
	return simple.Map{
		metaKey:    simple.Map{versionKey: version},
		contentKey: content,
	}
}

// Content returns the payload of a versioned document.
func Content(doc simple.Map) (any, error) {
	c, ok := doc[contentKey]
	if !ok {
		return nil, ErrMissingContent
	}
	return c, nil
}
