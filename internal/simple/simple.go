// ABOUTME: Serializable contract for values persisted as JSON-compatible trees
// ABOUTME: Defines Marshaler/Unmarshaler plus shape helpers used by every container

package simple

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrShape is returned when a tree does not have the shape a decoder expects.
var ErrShape = errors.New("unexpected tree shape")

// Map is the JSON object form of a tree.
type Map = map[string]any

// List is the JSON array form of a tree.
type List = []any

// Marshaler is implemented by values that can produce a JSON-compatible tree.
//
// Containers convert only their own shape. Element values must already be
// JSON-compatible or implement Marshaler themselves.
type Marshaler interface {
	ToSimple() any
}

// Unmarshaler is implemented by values that can merge a tree into themselves.
type Unmarshaler interface {
	UpdateFromSimple(tree any) error
}

// Simple is the full round-trip contract.
type Simple interface {
	Marshaler
	Unmarshaler
}

// Encode returns v.ToSimple() when v is a Marshaler, otherwise v itself.
func Encode(v any) any {
	if m, ok := v.(Marshaler); ok {
		return m.ToSimple()
	}
	return v
}

// Decode builds a T from a tree. If *T implements Unmarshaler it is used,
// otherwise the tree is converted through encoding/json.
func Decode[T any](tree any) (T, error) {
	var out T
	if u, ok := any(&out).(Unmarshaler); ok {
		if err := u.UpdateFromSimple(tree); err != nil {
			return out, err
		}
		return out, nil
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return out, fmt.Errorf("encoding tree: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return out, nil
}

// AsMap asserts tree is a JSON object.
func AsMap(tree any) (Map, error) {
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: want object, got %T", ErrShape, tree)
	}
	return m, nil
}

// AsList asserts tree is a JSON array.
func AsList(tree any) (List, error) {
	l, ok := tree.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: want array, got %T", ErrShape, tree)
	}
	return l, nil
}

// AsString asserts tree is a string.
func AsString(tree any) (string, error) {
	s, ok := tree.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrShape, tree)
	}
	return s, nil
}

// AsInt accepts any integral JSON number representation.
func AsInt(tree any) (int, error) {
	switch v := tree.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrShape, v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrShape, err)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: want integer, got %T", ErrShape, tree)
	}
}

// StringField reads a required string field from an object.
func StringField(m Map, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrShape, key)
	}
	s, err := AsString(v)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}
