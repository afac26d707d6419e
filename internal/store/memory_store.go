// ABOUTME: In-memory Store implementation for consumers' tests
// ABOUTME: Mirrors SQLiteStore ordering, uniqueness and active-token rules without SQLite

package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2389/coven-settings/internal/model"
)

type userKey struct {
	address string
	userID  string
}

// MemoryStore is an in-memory Store implementation for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	servers map[string]*model.ServerRecord // keyed by address
	tokens  map[userKey]*model.Token
	users   map[userKey]*model.User
	now     func() time.Time
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		servers: make(map[string]*model.ServerRecord),
		tokens:  make(map[userKey]*model.Token),
		users:   make(map[userKey]*model.User),
		now:     now,
	}
}

// SchemaVersion reports the newest schema version.
func (m *MemoryStore) SchemaVersion(ctx context.Context) (string, error) {
	return "v2", nil
}

// AddServer stores a new server.
func (m *MemoryStore) AddServer(ctx context.Context, server model.Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[server.Address]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateServer, server.Address)
	}
	m.servers[server.Address] = &model.ServerRecord{
		Server:    server,
		CreatedAt: m.now().UTC(),
	}
	return nil
}

// UpdateServer changes the name and ID of a stored server.
func (m *MemoryStore) UpdateServer(ctx context.Context, server model.Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.servers[server.Address]
	if !ok {
		return ErrNotFound
	}
	rec.Name = server.Name
	rec.ID = server.ID
	return nil
}

// GetServer retrieves a server by address.
func (m *MemoryStore) GetServer(ctx context.Context, address string) (*model.ServerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.servers[address]
	if !ok {
		return nil, ErrNotFound
	}
	return copyServer(rec), nil
}

// GetServers lists servers most recently connected first, then most recently created.
func (m *MemoryStore) GetServers(ctx context.Context) ([]*model.ServerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.ServerRecord, 0, len(m.servers))
	for _, rec := range m.servers {
		out = append(out, copyServer(rec))
	}
	slices.SortFunc(out, func(a, b *model.ServerRecord) int {
		switch {
		case a.ConnectedAt != nil && b.ConnectedAt == nil:
			return -1
		case a.ConnectedAt == nil && b.ConnectedAt != nil:
			return 1
		case a.ConnectedAt != nil && b.ConnectedAt != nil:
			if c := b.ConnectedAt.Compare(*a.ConnectedAt); c != 0 {
				return c
			}
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})
	return out, nil
}

// MarkServerConnected records a connection now.
func (m *MemoryStore) MarkServerConnected(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.servers[address]
	if !ok {
		return ErrNotFound
	}
	t := m.now().UTC()
	rec.ConnectedAt = &t
	return nil
}

// RemoveServer deletes a server with its tokens and users.
func (m *MemoryStore) RemoveServer(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[address]; !ok {
		return ErrNotFound
	}
	delete(m.servers, address)
	for k := range m.tokens {
		if k.address == address {
			delete(m.tokens, k)
		}
	}
	for k := range m.users {
		if k.address == address {
			delete(m.users, k)
		}
	}
	return nil
}

// AddToken upserts a token, keeping the active flag of an existing one.
func (m *MemoryStore) AddToken(ctx context.Context, token model.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := userKey{token.Address, token.UserID}
	active := false
	if existing, ok := m.tokens[k]; ok {
		active = existing.Active
	}
	t := token
	t.Active = active
	m.tokens[k] = &t
	return nil
}

// GetToken retrieves one token.
func (m *MemoryStore) GetToken(ctx context.Context, address, userID string) (*model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[userKey{address, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	result := *t
	return &result, nil
}

// GetTokens lists a server's tokens ordered by user ID.
func (m *MemoryStore) GetTokens(ctx context.Context, address string) ([]*model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Token
	for k, t := range m.tokens {
		if k.address == address {
			c := *t
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Token) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, nil
}

// RemoveToken deletes one token.
func (m *MemoryStore) RemoveToken(ctx context.Context, address, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := userKey{address, userID}
	if _, ok := m.tokens[k]; !ok {
		return ErrNotFound
	}
	delete(m.tokens, k)
	return nil
}

// SetActiveToken marks one token active and clears every other.
func (m *MemoryStore) SetActiveToken(ctx context.Context, address, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.tokens[userKey{address, userID}]
	if !ok {
		return ErrNotFound
	}
	for _, t := range m.tokens {
		t.Active = false
	}
	target.Active = true
	return nil
}

// UnsetActiveToken clears the active marker.
func (m *MemoryStore) UnsetActiveToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		t.Active = false
	}
	return nil
}

// GetActiveToken returns the active token joined with its server.
func (m *MemoryStore) GetActiveToken(ctx context.Context) (*model.ActiveToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tokens {
		if !t.Active {
			continue
		}
		srv, ok := m.servers[t.Address]
		if !ok {
			return nil, ErrNoActiveToken
		}
		return &model.ActiveToken{
			Server:   srv.Server,
			UserID:   t.UserID,
			DeviceID: t.DeviceID,
			Value:    t.Value,
		}, nil
	}
	return nil, ErrNoActiveToken
}

// AddUser upserts a user.
func (m *MemoryStore) AddUser(ctx context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := user
	m.users[userKey{user.Address, user.UserID}] = &u
	return nil
}

// GetUser retrieves one user.
func (m *MemoryStore) GetUser(ctx context.Context, address, userID string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userKey{address, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// GetUsers lists a server's users ordered by name.
func (m *MemoryStore) GetUsers(ctx context.Context, address string) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.User
	for k, u := range m.users {
		if k.address == address {
			c := *u
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.User) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.UserID, b.UserID))
	})
	return out, nil
}

// RemoveUser deletes one user.
func (m *MemoryStore) RemoveUser(ctx context.Context, address, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := userKey{address, userID}
	if _, ok := m.users[k]; !ok {
		return ErrNotFound
	}
	delete(m.users, k)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func copyServer(rec *model.ServerRecord) *model.ServerRecord {
	c := *rec
	if rec.ConnectedAt != nil {
		t := *rec.ConnectedAt
		c.ConnectedAt = &t
	}
	return &c
}
