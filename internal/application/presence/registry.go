package presence

import (
	"sort"
	"sync"

	"github.com/go-chat-realtime/internal/domain"
)

// Registry counts live connections per user id. A user is visible as online
// while the count is positive; only 0->1 and 1->0 transitions produce a
// domain.PresenceChange.
type Registry struct {
	mu       sync.RWMutex
	counts   map[string]int
	onChange func(domain.PresenceChange)
}

// NewRegistry returns an empty registry. onChange, when non-nil, is invoked
// synchronously for every visible transition, after the registry lock is released.
func NewRegistry(onChange func(domain.PresenceChange)) *Registry {
	return &Registry{counts: make(map[string]int), onChange: onChange}
}

// MarkOnline records one more connection for userID. The returned change is
// only meaningful when ok is true.
func (r *Registry) MarkOnline(userID string) (change domain.PresenceChange, ok bool) {
	r.mu.Lock()
	r.counts[userID]++
	ok = r.counts[userID] == 1
	r.mu.Unlock()

	if !ok {
		return domain.PresenceChange{}, false
	}
	return r.emit(domain.PresenceChange{UserID: userID, Status: domain.StatusOnline}), true
}

// MarkOffline records one fewer connection for userID. Calls for a user with
// no recorded connections are ignored.
func (r *Registry) MarkOffline(userID string) (change domain.PresenceChange, ok bool) {
	r.mu.Lock()
	n, known := r.counts[userID]
	if known {
		if n <= 1 {
			delete(r.counts, userID)
			ok = true
		} else {
			r.counts[userID] = n - 1
		}
	}
	r.mu.Unlock()

	if !ok {
		return domain.PresenceChange{}, false
	}
	return r.emit(domain.PresenceChange{UserID: userID, Status: domain.StatusOffline}), true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[userID] > 0
}

// Status is IsOnline expressed as a domain.PresenceStatus.
func (r *Registry) Status(userID string) domain.PresenceStatus {
	if r.IsOnline(userID) {
		return domain.StatusOnline
	}
	return domain.StatusOffline
}

// Connections returns the number of live connections bound to userID.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[userID]
}

// Snapshot returns the online user ids in ascending order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.counts))
	for id := range r.counts {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) emit(c domain.PresenceChange) domain.PresenceChange {
	if r.onChange != nil {
		r.onChange(c)
	}
	return c
}
