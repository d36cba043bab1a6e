package domain

import "encoding/json"

// Event is an outbound realtime event. Each concrete type fixes the payload
// shape for exactly one event name.
type Event interface {
	EventName() string
}

const (
	EventNewMessage         = "new_message"
	EventMessageSent        = "message_sent"
	EventIncomingCall       = "incoming_call"
	EventCallInitiated      = "call_initiated"
	EventCallAccepted       = "call_accepted"
	EventCallRejected       = "call_rejected"
	EventCallStatusChanged  = "call_status_changed"
	EventFriendStatusChange = "friend_status_change"
	EventVideoFrame         = "video_frame"
	EventJoined             = "joined"
	EventPong               = "pong"
	EventError              = "error"
)

// NewMessageEvent nests the message: its own "type" field would collide with
// the frame discriminator.
type NewMessageEvent struct {
	Message Message `json:"message"`
}

func (NewMessageEvent) EventName() string { return EventNewMessage }

type MessageSentEvent struct {
	Message Message `json:"message"`
}

func (MessageSentEvent) EventName() string { return EventMessageSent }

type IncomingCallEvent struct {
	SessionID  string `json:"session_id"`
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name"`
}

func (IncomingCallEvent) EventName() string { return EventIncomingCall }

// CallInitiatedEvent confirms a new session to the initiator.
type CallInitiatedEvent struct {
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Status        CallState `json:"status"`
}

func (CallInitiatedEvent) EventName() string { return EventCallInitiated }

type CallAcceptedEvent struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

func (CallAcceptedEvent) EventName() string { return EventCallAccepted }

type CallRejectedEvent struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

func (CallRejectedEvent) EventName() string { return EventCallRejected }

// CallStatusChangedEvent tells the remaining party that a session ended.
type CallStatusChangedEvent struct {
	SessionID string    `json:"session_id"`
	Status    CallState `json:"status"`
	Reason    EndReason `json:"reason,omitempty"`
	By        string    `json:"by,omitempty"`
}

func (CallStatusChangedEvent) EventName() string { return EventCallStatusChanged }

type FriendStatusChangeEvent struct{ PresenceChange }

func (FriendStatusChangeEvent) EventName() string { return EventFriendStatusChange }

type VideoFrameEvent struct {
	SessionID    string          `json:"session_id"`
	FromUserID   string          `json:"from_user_id"`
	TargetUserID string          `json:"target_user_id"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func (VideoFrameEvent) EventName() string { return EventVideoFrame }

// JoinedEvent acknowledges a join with the online snapshot at bind time.
type JoinedEvent struct {
	UserID string   `json:"userId"`
	Online []string `json:"online"`
}

func (JoinedEvent) EventName() string { return EventJoined }

type PongEvent struct{}

func (PongEvent) EventName() string { return EventPong }

// ErrorEvent reports a rejected inbound event back to its sender.
type ErrorEvent struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string { return EventError }
