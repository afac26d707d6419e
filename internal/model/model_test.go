package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/simple"
)

func TestServer_RoundTrip(t *testing.T) {
	servers := []Server{
		{Name: "Home", Address: "http://a", ID: "a1"},
		{Name: "", Address: "https://media.example.org:8920", ID: ""},
		{Name: "Wörk ✓", Address: "http://b", ID: "b2"},
	}
	for _, s := range servers {
		data, err := json.Marshal(simple.Encode(s))
		require.NoError(t, err)

		var tree any
		require.NoError(t, json.Unmarshal(data, &tree))

		got, err := simple.Decode[Server](tree)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestServer_IdentityIsAddress(t *testing.T) {
	a := Server{Name: "Home", Address: "http://a", ID: "1"}
	b := Server{Name: "Renamed", Address: "http://a", ID: "2"}
	c := Server{Name: "Home", Address: "http://c", ID: "1"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "http://a", ServerKey(a))
}

func TestServer_UpdateFromSimple_MissingField(t *testing.T) {
	var s Server
	err := s.UpdateFromSimple(simple.Map{"name": "x", "address": "http://x"})
	assert.ErrorIs(t, err, simple.ErrShape)
	assert.Equal(t, Server{}, s, "failed decode leaves the value untouched")
}

func TestNewDeviceID(t *testing.T) {
	a, b := NewDeviceID(), NewDeviceID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
