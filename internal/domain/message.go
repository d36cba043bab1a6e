package domain

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
)

// Message is immutable once appended to the history.
type Message struct {
	MessageID  string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
}

type SendMessageRequest struct {
	ReceiverID string      `json:"receiver_id" validate:"required"`
	Content    string      `json:"content" validate:"required,max=65536"`
	Type       MessageType `json:"type" validate:"omitempty,oneof=text image audio"`
}
