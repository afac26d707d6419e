package migrate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/simple"
)

// chain upgrades v1 -> v2 by renaming the content, and v2 -> v4 by wrapping it.
func chain() *Migrator {
	return New(map[int]Func{
		1: func(doc simple.Map) (simple.Map, error) {
			c, _ := Content(doc)
			return Envelope(2, simple.Map{"items": c}), nil
		},
		2: func(doc simple.Map) (simple.Map, error) {
			c, _ := Content(doc)
			return Envelope(4, simple.List{c}), nil
		},
	})
}

func TestMigrate_AppliesChain(t *testing.T) {
	got, err := chain().Migrate(Envelope(1, []any{"a"}))
	require.NoError(t, err)

	v, err := Version(got)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	c, err := Content(got)
	require.NoError(t, err)
	assert.Equal(t, simple.List{simple.Map{"items": []any{"a"}}}, c)
}

func TestMigrate_CurrentDocumentUnchanged(t *testing.T) {
	doc := Envelope(4, "x")
	got, err := chain().Migrate(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMigrate_EmptyTableIsBaseCase(t *testing.T) {
	doc := Envelope(1, simple.List{})
	got, err := New(nil).Migrate(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMigrate_ConvergesFromEveryRegisteredVersion(t *testing.T) {
	m := chain()
	for _, start := range []int{1, 2} {
		got, err := m.Migrate(Envelope(start, nil))
		require.NoError(t, err)

		v, err := Version(got)
		require.NoError(t, err)
		assert.False(t, m.Registered(v), "start %d ended at registered version %d", start, v)
	}
}

func TestMigrate_RegisteredStepsAreMonotonic(t *testing.T) {
	m := chain()
	for v, fn := range m.steps {
		out, err := fn(Envelope(v, simple.Map{}))
		require.NoError(t, err)

		next, err := Version(out)
		require.NoError(t, err)
		assert.Greater(t, next, v)
	}
}

func TestMigrate_RejectsNonMonotonicStep(t *testing.T) {
	m := New(map[int]Func{
		3: func(doc simple.Map) (simple.Map, error) {
			return Envelope(3, nil), nil
		},
	})
	_, err := m.Migrate(Envelope(3, nil))
	assert.ErrorIs(t, err, ErrNotMonotonic)
}

func TestMigrate_MissingVersion(t *testing.T) {
	docs := []string{
		`{"content": {}}`,
		`{"meta": {}, "content": {}}`,
		`{"meta": "v1", "content": {}}`,
		`{"meta": {"format_version": "1"}, "content": {}}`,
		`{"meta": {"format_version": 1.5}, "content": {}}`,
	}
	for _, raw := range docs {
		var doc simple.Map
		require.NoError(t, json.Unmarshal([]byte(raw), &doc))

		_, err := chain().Migrate(doc)
		assert.ErrorIs(t, err, ErrMissingVersion, raw)
	}
}

func TestMigrate_StepProducingBadDocument(t *testing.T) {
	m := New(map[int]Func{
		1: func(doc simple.Map) (simple.Map, error) {
			return simple.Map{"content": nil}, nil
		},
	})
	_, err := m.Migrate(Envelope(1, nil))
	assert.ErrorIs(t, err, ErrMissingVersion)
}

func TestContent_Missing(t *testing.T) {
	_, err := Content(simple.Map{"meta": simple.Map{"format_version": 1}})
	assert.ErrorIs(t, err, ErrMissingContent)
}
