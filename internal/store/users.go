// ABOUTME: Known-user persistence for SQLiteStore
// ABOUTME: Users are keyed by (address, user_id) and upserted on add

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/coven-settings/internal/model"
)

// AddUser stores a user, renaming an existing user with the same key.
func (s *SQLiteStore) AddUser(ctx context.Context, user model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (address, user_id, name) VALUES (?, ?, ?)
		ON CONFLICT(address, user_id) DO UPDATE SET name = excluded.name
	`, user.Address, user.UserID, user.Name)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser returns one user.
func (s *SQLiteStore) GetUser(ctx context.Context, address, userID string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT address, user_id, name FROM users WHERE address = ? AND user_id = ?
	`, address, userID).Scan(&u.Address, &u.UserID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// GetUsers returns the users of a server ordered by name.
func (s *SQLiteStore) GetUsers(ctx context.Context, address string) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, user_id, name FROM users WHERE address = ? ORDER BY name, user_id
	`, address)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Address, &u.UserID, &u.Name); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// RemoveUser deletes one user.
func (s *SQLiteStore) RemoveUser(ctx context.Context, address, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM users WHERE address = ? AND user_id = ?
	`, address, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return expectRow(result)
}
