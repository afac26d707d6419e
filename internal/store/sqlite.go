// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database, runs schema migrations, and provides shared query helpers

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverModernc is the pure-Go driver and the default.
	DriverModernc = "sqlite"
	// DriverCGO is github.com/mattn/go-sqlite3; it needs a cgo build.
	DriverCGO = "sqlite3"
)

// timeFormat is fixed-width so that TEXT ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

type sqliteOptions struct {
	driver      string
	logger      *slog.Logger
	now         func() time.Time
	busyTimeout time.Duration
	scripts     map[string]string
}

// Option configures a SQLiteStore.
type Option func(*sqliteOptions)

// WithDriver selects the database/sql driver name (DriverModernc or DriverCGO).
func WithDriver(name string) Option {
	return func(o *sqliteOptions) { o.driver = name }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *sqliteOptions) { o.logger = l }
}

// WithClock overrides the time source used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *sqliteOptions) { o.now = now }
}

// WithBusyTimeout sets how long a locked database is retried. Default 5s.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *sqliteOptions) { o.busyTimeout = d }
}

// withScripts replaces the embedded migration scripts. Used by tests.
func withScripts(scripts map[string]string) Option {
	return func(o *sqliteOptions) { o.scripts = scripts }
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// Parent directories are created if needed, and the schema is migrated to
// the newest version before the store is returned.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := sqliteOptions{
		driver:      DriverModernc,
		logger:      slog.Default(),
		now:         time.Now,
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "store")

	if path != ":memory:" {
		// Ensure parent directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: calls are serialized and per-connection pragmas stick
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", o.busyTimeout.Milliseconds()),
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", pragma, err)
		}
	}

	scripts := o.scripts
	if scripts == nil {
		if scripts, err = loadScripts(); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := migrateSchema(context.Background(), db, scripts, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", o.driver)
	return &SQLiteStore{db: db, logger: logger, now: o.now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// SchemaVersion reports the stored schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (string, error) {
	return schemaVersion(ctx, s.db)
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// expectRow turns a zero-row result into ErrNotFound.
func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn in a transaction and commits if fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// rows written by other tools may use plain RFC3339
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
