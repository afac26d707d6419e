// ABOUTME: Token and active-token persistence for SQLiteStore
// ABOUTME: At most one token row is active; activation clears the others in the same transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/coven-settings/internal/model"
)

// AddToken stores a token, replacing the device ID and value of an existing
// token for the same (address, user). The active flag of an existing row is
// kept; token.Active is ignored, use SetActiveToken.
func (s *SQLiteStore) AddToken(ctx context.Context, token model.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (address, user_id, device_id, token, active)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(address, user_id) DO UPDATE SET
			device_id = excluded.device_id,
			token = excluded.token
	`, token.Address, token.UserID, token.DeviceID, token.Value)
	if err != nil {
		return fmt.Errorf("upserting token: %w", err)
	}

	s.logger.Debug("stored token", "address", token.Address, "user_id", token.UserID)
	return nil
}

// GetToken returns the token of one user on one server.
func (s *SQLiteStore) GetToken(ctx context.Context, address, userID string) (*model.Token, error) {
	var tok model.Token
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT address, user_id, device_id, token, active
		FROM tokens WHERE address = ? AND user_id = ?
	`, address, userID).Scan(&tok.Address, &tok.UserID, &tok.DeviceID, &tok.Value, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying token: %w", err)
	}
	tok.Active = active != 0
	return &tok, nil
}

// GetTokens returns all tokens for a server ordered by user ID.
func (s *SQLiteStore) GetTokens(ctx context.Context, address string) ([]*model.Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, user_id, device_id, token, active
		FROM tokens WHERE address = ? ORDER BY user_id
	`, address)
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.Token
	for rows.Next() {
		var tok model.Token
		var active int
		if err := rows.Scan(&tok.Address, &tok.UserID, &tok.DeviceID, &tok.Value, &active); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		tok.Active = active != 0
		tokens = append(tokens, &tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}
	return tokens, nil
}

// RemoveToken deletes a token. Removing the active token leaves no token active.
func (s *SQLiteStore) RemoveToken(ctx context.Context, address, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tokens WHERE address = ? AND user_id = ?
	`, address, userID)
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return expectRow(result)
}

// SetActiveToken marks one token active and every other token inactive in a
// single transaction. Returns ErrNotFound if the token does not exist, in
// which case the previous active token is kept.
func (s *SQLiteStore) SetActiveToken(ctx context.Context, address, userID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tokens SET active = 1 WHERE address = ? AND user_id = ?
		`, address, userID)
		if err != nil {
			return fmt.Errorf("activating token: %w", err)
		}
		if err := expectRow(result); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tokens SET active = 0
			WHERE active = 1 AND NOT (address = ? AND user_id = ?)
		`, address, userID)
		if err != nil {
			return fmt.Errorf("clearing previous active token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("set active token", "address", address, "user_id", userID)
	return nil
}

// UnsetActiveToken clears the active marker. It is not an error if none is set.
func (s *SQLiteStore) UnsetActiveToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE tokens SET active = 0 WHERE active = 1`); err != nil {
		return fmt.Errorf("clearing active token: %w", err)
	}
	return nil
}

// GetActiveToken returns the active token joined with its server.
// Returns ErrNoActiveToken if no token is active or its server is gone.
// Should several rows be active, the most recently inserted one wins.
func (s *SQLiteStore) GetActiveToken(ctx context.Context) (*model.ActiveToken, error) {
	var at model.ActiveToken
	err := s.db.QueryRowContext(ctx, `
		SELECT s.name, s.address, s.server_id, t.user_id, t.device_id, t.token
		FROM tokens t
		JOIN servers s ON s.address = t.address
		WHERE t.active = 1
		ORDER BY t.rowid DESC
		LIMIT 1
	`).Scan(&at.Server.Name, &at.Server.Address, &at.Server.ID, &at.UserID, &at.DeviceID, &at.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveToken
	}
	if err != nil {
		return nil, fmt.Errorf("querying active token: %w", err)
	}
	return &at, nil
}
