// ABOUTME: File-backed store of known servers
// ABOUTME: Persists a bookmarked server set and exposes it through ObservableServers

package settings

import (
	"fmt"
	"log/slog"

	"github.com/2389/coven-settings/internal/filestore"
	"github.com/2389/coven-settings/internal/migrate"
)

// ServerFormatVersion is the format version of the servers file.
const ServerFormatVersion = 1

// serverMigrations upgrades older servers files. None exist yet.
func serverMigrations() *migrate.Migrator {
	return migrate.New(nil)
}

// ServerStore persists the known servers to a JSON file.
type ServerStore struct {
	file    *filestore.Store[*ServerSet]
	servers *ObservableServers
}

// OpenServerStore loads or creates the servers file at path.
func OpenServerStore(path string, logger *slog.Logger) (*ServerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := filestore.New(path, NewServerSet,
		filestore.WithFormatVersion(ServerFormatVersion),
		filestore.WithMigrator(serverMigrations()),
		filestore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening server store: %w", err)
	}
	return &ServerStore{
		file:    file,
		servers: NewObservableServers(file.Container(), logger),
	}, nil
}

// Servers returns the change-notifying server collection.
func (s *ServerStore) Servers() *ObservableServers {
	return s.servers
}

// Save persists the servers.
func (s *ServerStore) Save() error {
	return s.file.Save()
}

// Reload re-reads the file, publishing changes against the in-memory state.
func (s *ServerStore) Reload() error {
	if err := s.file.Reload(); err != nil {
		return err
	}
	s.servers.swap(s.file.Container())
	return nil
}

// State reports how the file was loaded.
func (s *ServerStore) State() filestore.State {
	return s.file.State()
}

// Close ends change subscriptions. It does not save.
func (s *ServerStore) Close() {
	s.servers.Close()
}
