// ABOUTME: Server persistence for SQLiteStore
// ABOUTME: Servers are keyed by address and listed most-recently-connected first

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/coven-settings/internal/model"
)

const serverColumns = `address, name, server_id, created_timestamp, connected_timestamp`

// AddServer inserts a server. Returns ErrDuplicateServer if the address is taken.
func (s *SQLiteStore) AddServer(ctx context.Context, server model.Server) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servers (address, name, server_id, created_timestamp)
		VALUES (?, ?, ?, ?)
	`, server.Address, server.Name, server.ID, formatTime(s.now()))
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateServer, server.Address)
		}
		return fmt.Errorf("inserting server: %w", err)
	}

	s.logger.Debug("added server", "address", server.Address)
	return nil
}

// UpdateServer changes the name and server ID of a stored server.
func (s *SQLiteStore) UpdateServer(ctx context.Context, server model.Server) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE servers SET name = ?, server_id = ? WHERE address = ?
	`, server.Name, server.ID, server.Address)
	if err != nil {
		return fmt.Errorf("updating server: %w", err)
	}
	return expectRow(result)
}

// GetServer returns the server stored under address.
func (s *SQLiteStore) GetServer(ctx context.Context, address string) (*model.ServerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+serverColumns+` FROM servers WHERE address = ?
	`, address)

	rec, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying server: %w", err)
	}
	return rec, nil
}

// GetServers returns every server, most recently connected first, then most
// recently created first. Servers never connected to come after the rest.
func (s *SQLiteStore) GetServers(ctx context.Context) ([]*model.ServerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+serverColumns+` FROM servers
		ORDER BY connected_timestamp IS NULL, connected_timestamp DESC, created_timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying servers: %w", err)
	}
	defer rows.Close()

	var servers []*model.ServerRecord
	for rows.Next() {
		rec, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning server: %w", err)
		}
		servers = append(servers, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating servers: %w", err)
	}
	return servers, nil
}

// MarkServerConnected records a successful connection to the server now.
func (s *SQLiteStore) MarkServerConnected(ctx context.Context, address string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE servers SET connected_timestamp = ? WHERE address = ?
	`, formatTime(s.now()), address)
	if err != nil {
		return fmt.Errorf("marking server connected: %w", err)
	}
	return expectRow(result)
}

// RemoveServer deletes a server together with its tokens and users.
func (s *SQLiteStore) RemoveServer(ctx context.Context, address string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM servers WHERE address = ?`, address)
		if err != nil {
			return fmt.Errorf("deleting server: %w", err)
		}
		if err := expectRow(result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE address = ?`, address); err != nil {
			return fmt.Errorf("deleting server tokens: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE address = ?`, address); err != nil {
			return fmt.Errorf("deleting server users: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("removed server", "address", address)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*model.ServerRecord, error) {
	var rec model.ServerRecord
	var createdAt string
	var connectedAt sql.NullString

	if err := row.Scan(&rec.Address, &rec.Name, &rec.ID, &createdAt, &connectedAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_timestamp: %w", err)
	}
	rec.CreatedAt = t

	if connectedAt.Valid {
		t, err := parseTime(connectedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing connected_timestamp: %w", err)
		}
		rec.ConnectedAt = &t
	}
	return &rec, nil
}
