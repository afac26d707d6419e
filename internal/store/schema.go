// ABOUTME: Schema migration runner driven by the version row in the meta table
// ABOUTME: Applies embedded migrations/<version>.sql scripts until none matches the stored version

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// BaselineVersion is the schema version of a database without a meta table.
const BaselineVersion = "v0"

//go:embed migrations/*.sql
var migrationFS embed.FS

// loadScripts reads the embedded scripts keyed by the version they upgrade from.
func loadScripts() (map[string]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	scripts := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		data, err := migrationFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}
		scripts[strings.TrimSuffix(name, ".sql")] = string(data)
	}
	return scripts, nil
}

// schemaVersion reads the version row. A database without a meta table, or
// with no version row, is at BaselineVersion.
func schemaVersion(ctx context.Context, db *sql.DB) (string, error) {
	var tables int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'meta'`,
	).Scan(&tables)
	if err != nil {
		return "", fmt.Errorf("checking meta table: %w", err)
	}
	if tables == 0 {
		return BaselineVersion, nil
	}

	var version sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT row_value FROM meta WHERE row_key = 'version'`,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !version.Valid) {
		return BaselineVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading schema version: %w", err)
	}
	return version.String, nil
}

// migrateSchema applies scripts while one is registered for the current
// version. Each script runs in its own transaction and is removed from the
// candidate set once applied, so a script that forgets to bump the version
// cannot loop.
func migrateSchema(ctx context.Context, db *sql.DB, scripts map[string]string, logger *slog.Logger) error {
	pending := make(map[string]string, len(scripts))
	for v, s := range scripts {
		pending[v] = s
	}

	for {
		version, err := schemaVersion(ctx, db)
		if err != nil {
			return err
		}

		script, ok := pending[version]
		if !ok {
			logger.Debug("schema is current", "version", version)
			return nil
		}
		delete(pending, version)

		if err := applyScript(ctx, db, script); err != nil {
			return fmt.Errorf("applying migration %s: %w", version, err)
		}

		after, err := schemaVersion(ctx, db)
		if err != nil {
			return err
		}
		logger.Info("applied migration", "from", version, "to", after)
	}
}

func applyScript(ctx context.Context, db *sql.DB, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	return tx.Commit()
}
