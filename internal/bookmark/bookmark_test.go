package bookmark

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/simple"
)

// viaJSON pushes a tree through encoding/json the way a file store does.
func viaJSON(t *testing.T, tree any) any {
	t.Helper()
	data, err := json.Marshal(tree)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSet_BookmarkIsLazy(t *testing.T) {
	s := NewStringSet()

	require.NoError(t, s.SetBookmark("later"))
	_, err := s.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)

	s.Add("later")
	got, err := s.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "later", got)

	s.Remove("later")
	_, err = s.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_UnsetBookmark(t *testing.T) {
	s := NewStringSet()
	s.Add("a")

	_, err := s.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetBookmark("a"))
	s.UnsetBookmark()
	_, err = s.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_ReadingBookmarkDoesNotMutate(t *testing.T) {
	s := NewStringSet()
	s.Add("a")
	require.NoError(t, s.SetBookmark("missing"))

	before := s.ToSimple()
	_, _ = s.Bookmark()
	assert.Equal(t, before, s.ToSimple())
	assert.Equal(t, 1, s.Len())
}

func TestSet_UniqueByIdentity(t *testing.T) {
	type rec struct{ ID, Name string }
	s := NewSet(func(r rec) string { return r.ID })

	assert.True(t, s.Add(rec{"1", "one"}))
	assert.False(t, s.Add(rec{"1", "uno"}))
	assert.Equal(t, []rec{{"1", "one"}}, s.Values())

	assert.True(t, s.Replace(rec{"1", "uno"}))
	assert.Equal(t, []rec{{"1", "uno"}}, s.Values())

	require.NoError(t, s.SetBookmark(rec{ID: "1"}))
	got, err := s.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "uno", got.Name, "bookmark read returns the current member")
}

func TestMap_BookmarkIsLazy(t *testing.T) {
	m := NewMap[string, int](Self)

	require.NoError(t, m.SetBookmark("k"))
	_, err := m.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.BookmarkKey()
	assert.ErrorIs(t, err, ErrNotFound)

	m.Set("k", 42)
	v, err := m.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	k, err := m.BookmarkKey()
	require.NoError(t, err)
	assert.Equal(t, "k", k)
}

func TestMap_InsertionOrder(t *testing.T) {
	m := NewMap[string, int](Self)
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("a", 4)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	assert.Equal(t, []string{"b", "c"}, m.Keys())

	var seen []int
	for _, v := range m.All() {
		seen = append(seen, v)
	}
	assert.Equal(t, []int{1, 3}, seen)
}

func TestDefaultMap_AutoVivifies(t *testing.T) {
	d := NewDefaultMap[string, *Set[string]](Self, NewStringSet)

	tokens := d.At("http://a")
	tokens.Add("tok")

	assert.Equal(t, 1, d.Len())
	got, ok := d.Get("http://a")
	require.True(t, ok)
	assert.Equal(t, []string{"tok"}, got.Values())

	assert.Same(t, got, d.At("http://a"))
}

func TestBookmark_RejectsNil(t *testing.T) {
	ptrSet := NewSet(func(p *int) string { return "" })
	assert.ErrorIs(t, ptrSet.SetBookmark(nil), ErrNilBookmark)

	anyMap := NewMap[any, int](func(k any) string { return "" })
	assert.ErrorIs(t, anyMap.SetBookmark(nil), ErrNilBookmark)

	var nilSlice []string
	sliceMap := NewMap[[]string, int](func(k []string) string { return "" })
	assert.ErrorIs(t, sliceMap.SetBookmark(nilSlice), ErrNilBookmark)

	// empty string is a real value, not the unset sentinel
	assert.NoError(t, NewStringSet().SetBookmark(""))
}

func TestSet_RoundTrip(t *testing.T) {
	s := NewStringSet()
	s.Add("x")
	s.Add("y")
	require.NoError(t, s.SetBookmark("y"))

	restored := NewStringSet()
	require.NoError(t, restored.UpdateFromSimple(viaJSON(t, s.ToSimple())))

	assert.Equal(t, s.Values(), restored.Values())
	got, err := restored.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "y", got)
}

func TestSet_RestoresDanglingBookmark(t *testing.T) {
	tree := simple.Map{"bookmark": "gone", "content": simple.List{"x"}}

	s := NewStringSet()
	require.NoError(t, s.UpdateFromSimple(tree))
	_, err := s.Bookmark()
	assert.ErrorIs(t, err, ErrNotFound)

	s.Add("gone")
	got, err := s.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "gone", got)
}

func TestDefaultMap_NestedRoundTrip(t *testing.T) {
	d := NewDefaultMap[string, *Set[string]](Self, NewStringSet)
	d.At("a").Add("t1")
	d.At("a").Add("t2")
	require.NoError(t, d.At("a").SetBookmark("t2"))
	d.At("b").Add("t3")
	require.NoError(t, d.SetBookmark("b"))

	restored := NewDefaultMap[string, *Set[string]](Self, NewStringSet)
	require.NoError(t, restored.UpdateFromSimple(viaJSON(t, d.ToSimple())))

	assert.Equal(t, []string{"a", "b"}, restored.Keys())
	assert.Equal(t, []string{"t1", "t2"}, restored.At("a").Values())
	pref, err := restored.At("a").Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "t2", pref)

	key, err := restored.BookmarkKey()
	require.NoError(t, err)
	assert.Equal(t, "b", key)
}

func TestMap_UpdateFromSimple_BadShapes(t *testing.T) {
	tests := []any{
		"not an object",
		simple.Map{"content": "nope"},
		simple.Map{"content": simple.List{"not a pair"}},
		simple.Map{"content": simple.List{simple.List{"only key"}}},
		simple.Map{"content": simple.List{simple.List{"k", "not an int"}}},
	}
	for _, tree := range tests {
		m := NewMap[string, int](Self)
		assert.ErrorIs(t, m.UpdateFromSimple(tree), simple.ErrShape, "tree %v", tree)
	}
}

func TestMap_NullBookmarkUnsets(t *testing.T) {
	m := NewMap[string, int](Self)
	require.NoError(t, m.SetBookmark("k"))
	require.NoError(t, m.UpdateFromSimple(simple.Map{"bookmark": nil, "content": simple.List{}}))

	_, err := m.BookmarkKey()
	assert.ErrorIs(t, err, ErrNotFound)
}
