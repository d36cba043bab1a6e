package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/id"
)

const DefaultRetention = time.Minute

type Options struct {
	Now   func() time.Time
	NewID func() string
	// Retention is how long ended sessions stay queryable before Sweep drops them.
	Retention time.Duration
}

// Manager owns the signaling state of every call session.
//
//	calling   --accept-->  connected
//	calling   --reject-->  ended
//	calling   --hang up--> ended
//	connected --hang up--> ended
//	ended     --hang up--> ended (no-op)
//
// Any other (state, event) pair fails with domain.ErrInvalidTransition.
// Sessions are not de-duplicated per pair: every Initiate opens a new one.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*domain.CallSession
	now       func() time.Time
	newID     func() string
	retention time.Duration
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = id.New
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Manager{
		sessions:  make(map[string]*domain.CallSession),
		now:       opts.Now,
		newID:     opts.NewID,
		retention: opts.Retention,
	}
}

// Initiate opens a session in CallCalling. The caller is responsible for
// notifying participantID.
func (m *Manager) Initiate(initiatorID, participantID string) (*domain.CallSession, error) {
	if participantID == "" {
		return nil, fmt.Errorf("participant required: %w", domain.ErrInvalidTarget)
	}
	if initiatorID == participantID {
		return nil, fmt.Errorf("cannot call yourself: %w", domain.ErrInvalidTarget)
	}
	now := m.now().UTC()
	s := &domain.CallSession{
		SessionID:     m.newID(),
		InitiatorID:   initiatorID,
		ParticipantID: participantID,
		State:         domain.CallCalling,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.mu.Lock()
	m.sessions[s.SessionID] = s
	m.mu.Unlock()
	return clone(s), nil
}

// Accept moves a calling session to connected. Only the participant may accept.
func (m *Manager) Accept(sessionID, actorID string) (*domain.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.answerableLocked(sessionID, actorID)
	if err != nil {
		return nil, err
	}
	s.State = domain.CallConnected
	s.UpdatedAt = m.now().UTC()
	return clone(s), nil
}

// Reject ends a calling session. Only the participant may reject.
func (m *Manager) Reject(sessionID, actorID string) (*domain.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.answerableLocked(sessionID, actorID)
	if err != nil {
		return nil, err
	}
	m.endLocked(s, domain.EndRejected)
	return clone(s), nil
}

// HangUp ends a calling or connected session. On an already ended session it
// succeeds with ended=false so the caller skips the cross-notification.
func (m *Manager) HangUp(sessionID, actorID string) (s *domain.CallSession, ended bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[sessionID]
	if !ok {
		return nil, false, fmt.Errorf("session %s: %w", sessionID, domain.ErrUnknownSession)
	}
	if !cur.Involves(actorID) {
		return nil, false, fmt.Errorf("user %s is not a party of session %s: %w", actorID, sessionID, domain.ErrForbidden)
	}
	if cur.Terminal() {
		return clone(cur), false, nil
	}
	m.endLocked(cur, domain.EndHangUp)
	return clone(cur), true, nil
}

// EndAllFor ends every non-terminal session involving userID and returns them.
func (m *Manager) EndAllFor(userID string) []*domain.CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CallSession
	for _, s := range m.sessions {
		if s.Terminal() || !s.Involves(userID) {
			continue
		}
		m.endLocked(s, domain.EndDisconnect)
		out = append(out, clone(s))
	}
	return out
}

// CanRelay reports whether a frame from fromID to targetID may be forwarded
// on sessionID: the session must be connected and the two users its parties.
func (m *Manager) CanRelay(sessionID, fromID, targetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.State != domain.CallConnected {
		return false
	}
	return targetID != "" && s.Peer(fromID) == targetID
}

func (m *Manager) Get(sessionID string) (*domain.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return clone(s), true
}

// Active returns the non-terminal sessions involving userID.
func (m *Manager) Active(userID string) []*domain.CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CallSession
	for _, s := range m.sessions {
		if !s.Terminal() && s.Involves(userID) {
			out = append(out, clone(s))
		}
	}
	return out
}

// Sweep drops ended sessions older than the retention window.
func (m *Manager) Sweep() int {
	cutoff := m.now().UTC().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sid, s := range m.sessions {
		if s.Terminal() && s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("swept ended call sessions", "count", n)
			}
		}
	}
}

func (m *Manager) answerableLocked(sessionID, actorID string) (*domain.CallSession, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrUnknownSession)
	}
	if actorID != s.ParticipantID {
		return nil, fmt.Errorf("only the called user may answer session %s: %w", sessionID, domain.ErrForbidden)
	}
	if s.State != domain.CallCalling {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, s.State, domain.ErrInvalidTransition)
	}
	return s, nil
}

func (m *Manager) endLocked(s *domain.CallSession, reason domain.EndReason) {
	now := m.now().UTC()
	s.State = domain.CallEnded
	s.EndReason = reason
	s.UpdatedAt = now
	s.EndedAt = &now
}

func clone(s *domain.CallSession) *domain.CallSession {
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
