package call

import (
	"fmt"
	"sync"

	"github.com/go-chat-realtime/internal/domain"
)

// Tracker mirrors the signaling state machine from one client's point of view.
// It adds CallRinging (an incoming call not yet answered), which the server
// never models. Outbound realtime events are fed in through Apply; local user
// actions go through Dial, Accept, Reject and HangUp.
type Tracker struct {
	mu        sync.Mutex
	self      string
	state     domain.CallState
	sessionID string
	peerID    string
}

func NewTracker(selfID string) *Tracker {
	return &Tracker{self: selfID, state: domain.CallIdle}
}

func (t *Tracker) State() domain.CallState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *Tracker) PeerID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peerID
}

// Dial starts an outgoing call. The session id is learned from the server's
// call_initiated confirmation.
func (t *Tracker) Dial(peerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.freeLocked() {
		return fmt.Errorf("dial while %s: %w", t.state, domain.ErrInvalidTransition)
	}
	if peerID == t.self {
		return fmt.Errorf("cannot call yourself: %w", domain.ErrInvalidTarget)
	}
	t.state, t.sessionID, t.peerID = domain.CallCalling, "", peerID
	return nil
}

func (t *Tracker) Accept() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.CallRinging {
		return fmt.Errorf("accept while %s: %w", t.state, domain.ErrInvalidTransition)
	}
	t.state = domain.CallConnected
	return nil
}

func (t *Tracker) Reject() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.CallRinging {
		return fmt.Errorf("reject while %s: %w", t.state, domain.ErrInvalidTransition)
	}
	t.state = domain.CallEnded
	return nil
}

// HangUp is idempotent once the call has ended.
func (t *Tracker) HangUp() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case domain.CallEnded:
		return nil
	case domain.CallIdle:
		return fmt.Errorf("hang up while idle: %w", domain.ErrInvalidTransition)
	}
	t.state = domain.CallEnded
	return nil
}

// Apply feeds one server event into the tracker and reports whether it
// changed the state. Events for other sessions are ignored.
func (t *Tracker) Apply(ev domain.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case domain.CallInitiatedEvent:
		if t.state == domain.CallCalling && t.sessionID == "" && e.ParticipantID == t.peerID {
			t.sessionID = e.SessionID
		}
		return false
	case domain.IncomingCallEvent:
		if !t.freeLocked() {
			return false
		}
		t.state, t.sessionID, t.peerID = domain.CallRinging, e.SessionID, e.CallerID
		return true
	case domain.CallAcceptedEvent:
		if t.state != domain.CallCalling || e.SessionID != t.sessionID {
			return false
		}
		t.state = domain.CallConnected
		return true
	case domain.CallRejectedEvent:
		if t.state != domain.CallCalling || e.SessionID != t.sessionID {
			return false
		}
		t.state = domain.CallEnded
		return true
	case domain.CallStatusChangedEvent:
		if e.Status != domain.CallEnded || e.SessionID != t.sessionID || t.state == domain.CallEnded {
			return false
		}
		t.state = domain.CallEnded
		return true
	}
	return false
}

func (t *Tracker) freeLocked() bool {
	return t.state == domain.CallIdle || t.state == domain.CallEnded
}
