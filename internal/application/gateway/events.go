package gateway

import (
	"encoding/json"

	"github.com/go-chat-realtime/internal/domain"
)

// Inbound event names after alias resolution.
const (
	evJoin         = "join"
	evPing         = "ping"
	evSendMessage  = "send_message"
	evCallInitiate = "call_initiated"
	evCallAccept   = "call_accepted"
	evCallReject   = "call_rejected"
	evHangUp       = "hang_up"
	evVideoFrame   = "video_frame"
)

// aliases maps the names older clients emit onto the canonical ones.
var aliases = map[string]string{
	"join_user_room": evJoin,
	"auth":           evJoin,
	"initiate_call":  evCallInitiate,
	"accept_call":    evCallAccept,
	"reject_call":    evCallReject,
}

// Canonical resolves an inbound event name. Unknown names are returned as is.
func Canonical(name string) string {
	if c, ok := aliases[name]; ok {
		return c
	}
	return name
}

type joinPayload struct {
	Token string `json:"token" validate:"required"`
	// UserID is optional; when present it must match the token subject.
	UserID string `json:"userId"`
}

// sendMessagePayload carries the message kind as message_type because the
// frame's own "type" key is the event name. Any sender id in the frame is
// ignored.
type sendMessagePayload struct {
	ReceiverID  string             `json:"receiver_id" validate:"required"`
	Content     string             `json:"content" validate:"required,max=65536"`
	MessageType domain.MessageType `json:"message_type" validate:"omitempty,oneof=text image audio"`
}

type initiatePayload struct {
	ParticipantID string `json:"participant_id"`
	CalleeID      string `json:"callee_id"`
}

func (p initiatePayload) target() string {
	if p.ParticipantID != "" {
		return p.ParticipantID
	}
	return p.CalleeID
}

// answerPayload serves accept and reject. caller_id is informational; the
// session record is authoritative.
type answerPayload struct {
	SessionID string `json:"session_id" validate:"required"`
	CallerID  string `json:"caller_id"`
}

type hangUpPayload struct {
	SessionID string `json:"session_id" validate:"required"`
}

type videoFramePayload struct {
	SessionID    string          `json:"session_id" validate:"required"`
	TargetUserID string          `json:"target_user_id" validate:"required"`
	Payload      json.RawMessage `json:"payload"`
}
