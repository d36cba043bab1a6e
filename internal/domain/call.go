package domain

import "time"

// CallState is the signaling state of a call session. CallIdle and CallRinging
// only exist on the client side; the server never stores them.
type CallState string

const (
	CallIdle      CallState = "idle"
	CallCalling   CallState = "calling"
	CallRinging   CallState = "ringing"
	CallConnected CallState = "connected"
	CallEnded     CallState = "ended"
)

// EndReason records how a session reached CallEnded.
type EndReason string

const (
	EndHangUp     EndReason = "hang_up"
	EndRejected   EndReason = "rejected"
	EndDisconnect EndReason = "disconnect"
)

type CallSession struct {
	SessionID     string     `json:"id"`
	InitiatorID   string     `json:"initiator_id"`
	ParticipantID string     `json:"participant_id"`
	State         CallState  `json:"status"`
	EndReason     EndReason  `json:"end_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// Involves reports whether userID is one of the two parties.
func (s *CallSession) Involves(userID string) bool {
	return s.InitiatorID == userID || s.ParticipantID == userID
}

// Peer returns the other party of the session, or "" when userID is not a party.
func (s *CallSession) Peer(userID string) string {
	switch userID {
	case s.InitiatorID:
		return s.ParticipantID
	case s.ParticipantID:
		return s.InitiatorID
	}
	return ""
}

func (s *CallSession) Terminal() bool { return s.State == CallEnded }

type StartCallRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

type CallStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected ended"`
}
