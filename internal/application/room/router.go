package room

import (
	"log/slog"
	"sync"

	"github.com/go-chat-realtime/internal/domain"
)

// Conn is a transport connection that can be handed outbound events.
// Send must not block; it reports false when the event was dropped.
type Conn interface {
	ID() string
	Send(ev domain.Event) bool
}

// Router maps a user id to the connections joined under it. Delivery is
// fire-and-forget: events for users with no joined connection are dropped.
type Router struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn // user id -> conn id -> conn
}

func NewRouter() *Router {
	return &Router{rooms: make(map[string]map[string]Conn)}
}

func (r *Router) Join(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[userID] = room
	}
	room[c.ID()] = c
}

func (r *Router) Leave(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[userID]
	if !ok {
		return
	}
	delete(room, c.ID())
	if len(room) == 0 {
		delete(r.rooms, userID)
	}
}

// DeliverTo sends ev to every connection joined under userID and returns how
// many accepted it.
func (r *Router) DeliverTo(userID string, ev domain.Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.rooms[userID] {
		if c.Send(ev) {
			n++
		} else {
			slog.Warn("dropped event for slow connection", "event", ev.EventName(), "user_id", userID, "conn_id", c.ID())
		}
	}
	return n
}

// Broadcast sends ev to every joined connection except the one with id exceptConnID.
func (r *Router) Broadcast(ev domain.Event, exceptConnID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, room := range r.rooms {
		for id, c := range room {
			if id == exceptConnID {
				continue
			}
			if c.Send(ev) {
				n++
			}
		}
	}
	return n
}

// Members returns the number of connections joined under userID.
func (r *Router) Members(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}
