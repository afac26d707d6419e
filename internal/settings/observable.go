// ABOUTME: Change-notifying wrapper around the bookmarked server set
// ABOUTME: Publishes one Added/Removed change per element after each mutation completes

package settings

import (
	"context"
	"log/slog"

	"github.com/2389/coven-settings/internal/bookmark"
	"github.com/2389/coven-settings/internal/model"
	"github.com/2389/coven-settings/internal/notify"
)

// ChangeKind says whether a server appeared or disappeared.
type ChangeKind int

const (
	Added ChangeKind = iota + 1
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// ServerChange is one notification from ObservableServers.
type ServerChange struct {
	Kind   ChangeKind
	Server model.Server
}

// ServerSet is the bookmarked set of servers persisted by ServerStore.
type ServerSet = bookmark.Set[model.Server]

// NewServerSet creates an empty set keyed by server address.
func NewServerSet() *ServerSet {
	return bookmark.NewSet(model.ServerKey)
}

// ObservableServers wraps a ServerSet so listeners learn about additions and
// removals without polling. Like the set itself it has a single owner;
// subscribers may run on other goroutines. Changes are queued per
// subscriber, so none are lost however far a reader falls behind.
type ObservableServers struct {
	set    *ServerSet
	events *notify.Broadcaster[ServerChange]
}

// NewObservableServers wraps set. Pass nil logger for default.
func NewObservableServers(set *ServerSet, logger *slog.Logger) *ObservableServers {
	return &ObservableServers{
		set:    set,
		events: notify.NewBroadcaster[ServerChange](logger, notify.WithQueue()),
	}
}

// Subscribe returns a channel of changes made after this call.
func (o *ObservableServers) Subscribe(ctx context.Context) (<-chan ServerChange, string) {
	return o.events.Subscribe(ctx)
}

// Unsubscribe stops a subscription.
func (o *ObservableServers) Unsubscribe(id string) {
	o.events.Unsubscribe(id)
}

// Close ends every subscription.
func (o *ObservableServers) Close() {
	o.events.Close()
}

// Add inserts a server and reports whether it was new.
func (o *ObservableServers) Add(s model.Server) bool {
	var added bool
	o.mutate(func(set *ServerSet) *ServerSet {
		added = set.Add(s)
		return set
	})
	return added
}

// Remove deletes a server and reports whether it was present.
func (o *ObservableServers) Remove(s model.Server) bool {
	var removed bool
	o.mutate(func(set *ServerSet) *ServerSet {
		removed = set.Remove(s)
		return set
	})
	return removed
}

// Update stores s over the server with the same address, adding it if absent.
// Renaming an existing server changes no identity and publishes nothing.
func (o *ObservableServers) Update(s model.Server) {
	o.mutate(func(set *ServerSet) *ServerSet {
		set.Replace(s)
		return set
	})
}

// Replace makes servers the full content of the set.
func (o *ObservableServers) Replace(servers []model.Server) {
	o.mutate(func(set *ServerSet) *ServerSet {
		set.Clear()
		for _, s := range servers {
			set.Replace(s)
		}
		return set
	})
}

// Clear removes every server.
func (o *ObservableServers) Clear() {
	o.mutate(func(set *ServerSet) *ServerSet {
		set.Clear()
		return set
	})
}

// swap replaces the underlying set, publishing the difference.
func (o *ObservableServers) swap(next *ServerSet) {
	o.mutate(func(*ServerSet) *ServerSet { return next })
}

// Values returns the servers in insertion order.
func (o *ObservableServers) Values() []model.Server {
	return o.set.Values()
}

// Has reports whether a server with s's address is present.
func (o *ObservableServers) Has(s model.Server) bool {
	return o.set.Has(s)
}

// Len returns the number of servers.
func (o *ObservableServers) Len() int {
	return o.set.Len()
}

// SetCurrent bookmarks s as the current server.
func (o *ObservableServers) SetCurrent(s model.Server) error {
	return o.set.SetBookmark(s)
}

// UnsetCurrent clears the current server.
func (o *ObservableServers) UnsetCurrent() {
	o.set.UnsetBookmark()
}

// Current returns the bookmarked server if it is still present.
func (o *ObservableServers) Current() (model.Server, error) {
	return o.set.Bookmark()
}

// Set exposes the wrapped set. Mutating it directly bypasses notifications.
func (o *ObservableServers) Set() *ServerSet {
	return o.set
}

// mutate applies fn, then publishes Removed for servers only present before
// and Added for servers only present after.
func (o *ObservableServers) mutate(fn func(*ServerSet) *ServerSet) {
	before := o.set.Values()
	o.set = fn(o.set)
	after := o.set.Values()

	beforeIDs := make(map[string]struct{}, len(before))
	for _, s := range before {
		beforeIDs[s.Key()] = struct{}{}
	}
	afterIDs := make(map[string]struct{}, len(after))
	for _, s := range after {
		afterIDs[s.Key()] = struct{}{}
	}

	for _, s := range before {
		if _, ok := afterIDs[s.Key()]; !ok {
			o.events.Publish(ServerChange{Kind: Removed, Server: s})
		}
	}
	for _, s := range after {
		if _, ok := beforeIDs[s.Key()]; !ok {
			o.events.Publish(ServerChange{Kind: Added, Server: s})
		}
	}
}
