// ABOUTME: Store interface and errors for the relational settings backing
// ABOUTME: Servers, tokens, users and the single active-token marker

package store

import (
	"context"
	"errors"

	"github.com/2389/coven-settings/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateServer is returned when adding a server whose address is already stored
var ErrDuplicateServer = errors.New("server already exists")

// ErrNoActiveToken is returned when no token is marked active
var ErrNoActiveToken = errors.New("no active token")

// Store defines the typed operations of the relational backing.
// Every mutating call commits on its own; there is no cross-call transaction.
type Store interface {
	// SchemaVersion reports the stored schema version, e.g. "v2"
	SchemaVersion(ctx context.Context) (string, error)

	// Servers
	AddServer(ctx context.Context, server model.Server) error
	UpdateServer(ctx context.Context, server model.Server) error
	GetServer(ctx context.Context, address string) (*model.ServerRecord, error)
	GetServers(ctx context.Context) ([]*model.ServerRecord, error)
	MarkServerConnected(ctx context.Context, address string) error
	RemoveServer(ctx context.Context, address string) error

	// Tokens
	AddToken(ctx context.Context, token model.Token) error
	GetToken(ctx context.Context, address, userID string) (*model.Token, error)
	GetTokens(ctx context.Context, address string) ([]*model.Token, error)
	RemoveToken(ctx context.Context, address, userID string) error

	// Active token
	SetActiveToken(ctx context.Context, address, userID string) error
	UnsetActiveToken(ctx context.Context) error
	GetActiveToken(ctx context.Context) (*model.ActiveToken, error)

	// Users
	AddUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, address, userID string) (*model.User, error)
	GetUsers(ctx context.Context, address string) ([]*model.User, error)
	RemoveUser(ctx context.Context, address, userID string) error

	// Close releases any resources held by the store
	Close() error
}
