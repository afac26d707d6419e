// ABOUTME: Persisted records shared by the file-backed and relational stores
// ABOUTME: Server, Token and User identities plus the Server simple-tree codec

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-settings/internal/simple"
)

// Server is a media server the client knows about.
// Two servers with the same Address are the same server.
type Server struct {
	Name    string
	Address string
	ID      string
}

// Key returns the identity of the server.
func (s Server) Key() string {
	return s.Address
}

// Equal compares identity only.
func (s Server) Equal(other Server) bool {
	return s.Key() == other.Key()
}

// ServerKey is the identity function for bookmarked containers of servers.
func ServerKey(s Server) string {
	return s.Key()
}

// ToSimple returns {"name", "address", "server_id"}.
func (s Server) ToSimple() any {
	return simple.Map{
		"name":      s.Name,
		"address":   s.Address,
		"server_id": s.ID,
	}
}

// UpdateFromSimple reads the tree produced by ToSimple.
func (s *Server) UpdateFromSimple(tree any) error {
	m, err := simple.AsMap(tree)
	if err != nil {
		return err
	}
	name, err := simple.StringField(m, "name")
	if err != nil {
		return err
	}
	address, err := simple.StringField(m, "address")
	if err != nil {
		return err
	}
	id, err := simple.StringField(m, "server_id")
	if err != nil {
		return err
	}
	s.Name, s.Address, s.ID = name, address, id
	return nil
}

var (
	_ simple.Marshaler   = Server{}
	_ simple.Unmarshaler = (*Server)(nil)
)

// ServerRecord is a Server row with relational bookkeeping.
type ServerRecord struct {
	Server
	CreatedAt   time.Time
	ConnectedAt *time.Time // nil until the first successful connection
}

// Token is an access token for one user on one server.
// At most one token exists per (Address, UserID).
type Token struct {
	Address  string
	UserID   string
	DeviceID string
	Value    string
	Active   bool
}

// ActiveToken is the token currently used as the logged-in session,
// joined with the server it belongs to.
type ActiveToken struct {
	Server   Server
	UserID   string
	DeviceID string
	Value    string
}

// User is a known user on a server.
type User struct {
	Address string
	UserID  string
	Name    string
}

// NewDeviceID returns a fresh device identifier for token registration.
func NewDeviceID() string {
	return uuid.NewString()
}
