// ABOUTME: File-backed store of access tokens per server
// ABOUTME: A bookmarked default-map from server to a bookmarked set of token strings

package settings

import (
	"fmt"
	"log/slog"

	"github.com/2389/coven-settings/internal/bookmark"
	"github.com/2389/coven-settings/internal/filestore"
	"github.com/2389/coven-settings/internal/migrate"
	"github.com/2389/coven-settings/internal/model"
)

// AccessTokenFormatVersion is the format version of the tokens file.
const AccessTokenFormatVersion = 1

// accessTokenMigrations upgrades older token files. Version 1 is the first
// format, so the table is empty.
func accessTokenMigrations() *migrate.Migrator {
	return migrate.New(nil)
}

// TokenTable maps each server to its stored tokens. The map bookmark is the
// preferred server; each set's bookmark is that server's preferred token.
type TokenTable = bookmark.DefaultMap[model.Server, *bookmark.Set[string]]

// NewTokenTable creates an empty TokenTable.
func NewTokenTable() *TokenTable {
	return bookmark.NewDefaultMap[model.Server, *bookmark.Set[string]](model.ServerKey, bookmark.NewStringSet)
}

// AccessTokenStore persists access tokens to a JSON file.
type AccessTokenStore struct {
	file *filestore.Store[*TokenTable]
}

// OpenAccessTokenStore loads or creates the tokens file at path.
func OpenAccessTokenStore(path string, logger *slog.Logger) (*AccessTokenStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := filestore.New(path, NewTokenTable,
		filestore.WithFormatVersion(AccessTokenFormatVersion),
		filestore.WithMigrator(accessTokenMigrations()),
		filestore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening access token store: %w", err)
	}
	return &AccessTokenStore{file: file}, nil
}

func (a *AccessTokenStore) table() *TokenTable {
	return a.file.Container()
}

// AddToken stores token for server, creating the server's entry if needed.
// The stored server record takes the latest name and ID.
func (a *AccessTokenStore) AddToken(server model.Server, token string) {
	tokens := a.table().At(server)
	tokens.Add(token)
	a.table().Set(server, tokens)
}

// RemoveToken deletes token for server and reports whether it was stored.
func (a *AccessTokenStore) RemoveToken(server model.Server, token string) bool {
	tokens, ok := a.table().Get(server)
	if !ok {
		return false
	}
	return tokens.Remove(token)
}

// Tokens returns the tokens stored for server.
func (a *AccessTokenStore) Tokens(server model.Server) []string {
	tokens, ok := a.table().Get(server)
	if !ok {
		return nil
	}
	return tokens.Values()
}

// Servers returns every server with an entry.
func (a *AccessTokenStore) Servers() []model.Server {
	return a.table().Keys()
}

// RemoveServer drops a server with all its tokens.
func (a *AccessTokenStore) RemoveServer(server model.Server) bool {
	return a.table().Delete(server)
}

// SetPreferredServer bookmarks server. It need not have tokens yet.
func (a *AccessTokenStore) SetPreferredServer(server model.Server) error {
	return a.table().SetBookmark(server)
}

// PreferredServer returns the bookmarked server as stored.
func (a *AccessTokenStore) PreferredServer() (model.Server, error) {
	return a.table().BookmarkKey()
}

// SetPreferredToken bookmarks token within server's tokens.
func (a *AccessTokenStore) SetPreferredToken(server model.Server, token string) error {
	return a.table().At(server).SetBookmark(token)
}

// PreferredToken returns server's bookmarked token.
func (a *AccessTokenStore) PreferredToken(server model.Server) (string, error) {
	tokens, ok := a.table().Get(server)
	if !ok {
		return "", fmt.Errorf("%w: no tokens for %s", bookmark.ErrNotFound, server.Address)
	}
	return tokens.Bookmark()
}

// Table exposes the underlying container.
func (a *AccessTokenStore) Table() *TokenTable {
	return a.table()
}

// Save persists the tokens.
func (a *AccessTokenStore) Save() error {
	return a.file.Save()
}

// State reports how the file was loaded.
func (a *AccessTokenStore) State() filestore.State {
	return a.file.State()
}
