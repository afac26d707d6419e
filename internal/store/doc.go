// Package store provides the relational settings backing using SQLite.
//
// # Architecture
//
// Store is the typed interface consumed by the UI layer; nothing outside this
// package touches SQL. Two implementations exist:
//
//   - SQLiteStore: database/sql over modernc.org/sqlite (or the cgo
//     github.com/mattn/go-sqlite3 driver via WithDriver(DriverCGO))
//   - MemoryStore: in-memory twin with the same ordering and active-token
//     rules, for consumers' tests
//
// # Data Models
//
//   - servers: address (primary key), name, server_id, created and
//     connected timestamps
//   - tokens: (address, user_id) -> device_id, token, active
//   - users: (address, user_id) -> name
//   - meta: row_key/row_value pairs; row "version" is the schema version
//
// GetServers lists servers most recently connected first, then most
// recently created first.
//
// At most one token is active. SetActiveToken clears every other active row
// in the same transaction.
//
// # SQLite Configuration
//
// The store holds a single connection so calls are serialized:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000; -- WithBusyTimeout
//
// Each mutating call commits on its own. Callers needing check-then-act
// atomicity rely on the upserting operations (AddToken, AddUser) rather than
// a Get followed by an Add.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateServer: A server with that address is already stored
//   - ErrNoActiveToken: No token is marked active
//
// # Migrations
//
// Migration scripts are embedded from migrations/<version>.sql, named by the
// schema version they upgrade from. On construction the runner reads the
// version row (a database without a meta table is "v0"), applies the
// matching script in one transaction, and repeats until no script matches.
// Applied scripts are dropped from the candidate set, so a script that does
// not bump the version ends the run instead of looping.
package store
