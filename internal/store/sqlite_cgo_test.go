//go:build cgo

// ABOUTME: Smoke tests for the SQLite store on the cgo driver
// ABOUTME: Runs the schema migration and a server and token round trip through mattn/go-sqlite3

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/model"
)

func TestNewSQLiteStore_CGODriver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cgo.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath, WithDriver(DriverCGO), WithClock(testClock()))
	require.NoError(t, err)

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, store.AddServer(ctx, serverA))
	assert.ErrorIs(t, store.AddServer(ctx, serverA), ErrDuplicateServer)

	require.NoError(t, store.AddToken(ctx, model.Token{Address: serverA.Address, UserID: "u1", DeviceID: "d1", Value: "tok"}))
	require.NoError(t, store.SetActiveToken(ctx, serverA.Address, "u1"))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath, WithDriver(DriverCGO))
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetServer(ctx, serverA.Address)
	require.NoError(t, err)
	assert.Equal(t, serverA, got.Server)

	active, err := store.GetActiveToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.ActiveToken{Server: serverA, UserID: "u1", DeviceID: "d1", Value: "tok"}, active)
}
