// ABOUTME: Tests for SQLite store construction and schema migration
// ABOUTME: Covers file creation, legacy upgrades, runner termination and failed scripts

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/model"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AddServer(context.Background(), serverA))
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.AddServer(ctx, serverA))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetServer(ctx, serverA.Address)
	require.NoError(t, err)
	assert.Equal(t, serverA, got.Server)

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

// openRaw opens a database without running migrations.
func openRaw(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverModernc, path)
	require.NoError(t, err)
	return db
}

func TestMigrateSchema_UpgradesLegacyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	v0, err := migrationFS.ReadFile("migrations/v0.sql")
	require.NoError(t, err)

	raw := openRaw(t, dbPath)
	_, err = raw.Exec(string(v0))
	require.NoError(t, err)
	_, err = raw.Exec(`
		INSERT INTO servers (address, name, server_id, created_timestamp)
		VALUES ('http://a', 'Home', 'id-a', '2023-05-01T10:00:00Z'),
		       ('http://b', 'Work', 'id-b', '2023-05-02T10:00:00Z');
		INSERT INTO tokens (address, user_id, device_id, token, active)
		VALUES ('http://a', 'u1', 'd1', 't1', 1),
		       ('http://b', 'u2', 'd2', 't2', 1);
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	active, err := store.GetActiveToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", active.UserID, "newest active row survives the upgrade")

	first, err := store.GetToken(ctx, "http://a", "u1")
	require.NoError(t, err)
	assert.False(t, first.Active)

	servers, err := store.GetServers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b", "http://a"}, addresses(servers),
		"RFC3339 timestamps from older rows still parse and order")

	require.NoError(t, store.AddUser(ctx, model.User{Address: "http://a", UserID: "u1", Name: "Ann"}))
}

func TestMigrateSchema_BaselineWithoutMeta(t *testing.T) {
	raw := openRaw(t, filepath.Join(t.TempDir(), "empty.db"))
	defer raw.Close()

	v, err := schemaVersion(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, BaselineVersion, v)
}

func TestMigrateSchema_TerminatesWhenScriptForgetsVersion(t *testing.T) {
	scripts := map[string]string{
		// creates meta but never writes a version row, so the store stays at v0
		"v0": `CREATE TABLE meta (row_key TEXT PRIMARY KEY, row_value TEXT);`,
	}
	store := setupTestStore(t, withScripts(scripts))

	v, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BaselineVersion, v)
}

func TestMigrateSchema_FollowsChain(t *testing.T) {
	scripts := map[string]string{
		"v0": `CREATE TABLE meta (row_key TEXT PRIMARY KEY, row_value TEXT);
		       INSERT INTO meta VALUES ('version', 'a');`,
		"a": `CREATE TABLE marks (n INTEGER); INSERT INTO marks VALUES (1);
		      UPDATE meta SET row_value = 'b' WHERE row_key = 'version';`,
		"b": `INSERT INTO marks VALUES (2);
		      UPDATE meta SET row_value = 'c' WHERE row_key = 'version';`,
		"unrelated": `INSERT INTO marks VALUES (99);`,
	}
	store := setupTestStore(t, withScripts(scripts))

	v, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", v)

	var sum int
	require.NoError(t, store.db.QueryRow(`SELECT sum(n) FROM marks`).Scan(&sum))
	assert.Equal(t, 3, sum)
}

func TestMigrateSchema_FailedScriptRollsBack(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bad.db")
	scripts := map[string]string{
		"v0": `CREATE TABLE meta (row_key TEXT PRIMARY KEY, row_value TEXT);
		       INSERT INTO meta VALUES ('version', 'v1');
		       INSERT INTO missing_table VALUES (1);`,
	}
	_, err := NewSQLiteStore(dbPath, withScripts(scripts))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying migration v0")

	raw := openRaw(t, dbPath)
	defer raw.Close()
	v, err := schemaVersion(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, BaselineVersion, v)
}

func TestGetActiveToken_SeveralActiveRowsNewestWins(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddServer(ctx, serverA))
	require.NoError(t, store.AddServer(ctx, serverB))

	// bypass SetActiveToken to reproduce data written by older builds
	_, err := store.db.Exec(`
		INSERT INTO tokens (address, user_id, device_id, token, active)
		VALUES ('http://a', 'user1', 'd1', 't1', 1),
		       ('http://b', 'user2', 'd2', 't2', 1);
	`)
	require.NoError(t, err)

	active, err := store.GetActiveToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user2", active.UserID)

	require.NoError(t, store.SetActiveToken(ctx, "http://a", "user1"))
	var count int
	require.NoError(t, store.db.QueryRow(`SELECT count(*) FROM tokens WHERE active = 1`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIsConstraintViolation(t *testing.T) {
	assert.False(t, isConstraintViolation(nil))
	assert.False(t, isConstraintViolation(assert.AnError))
	assert.True(t, isConstraintViolation(errors.New("UNIQUE constraint failed: servers.address")))
}
