package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/id"
)

type Service interface {
	// Send records the message and delivers new_message to the receiver's
	// room. Delivery is best-effort; the history always has the message.
	Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error)
	History(ctx context.Context, userID, contactID string) ([]domain.Message, error)
}

type messageStore interface {
	Append(ctx context.Context, m *domain.Message) error
	Between(ctx context.Context, a, b string) ([]domain.Message, error)
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type deliverer interface {
	DeliverTo(userID string, ev domain.Event) int
}

type service struct {
	messages messageStore
	users    userLookup
	rooms    deliverer
	now      func() time.Time
}

func NewService(messages messageStore, users userLookup, rooms deliverer) Service {
	return &service{messages: messages, users: users, rooms: rooms, now: time.Now}
}

func (s *service) Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error) {
	if _, err := s.users.Get(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("receiver %s: %w", req.ReceiverID, domain.ErrInvalidTarget)
		}
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = domain.MessageText
	}
	m := &domain.Message{
		MessageID:  id.New(),
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Type:       typ,
		Timestamp:  s.now().UTC(),
	}
	if err := s.messages.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	s.rooms.DeliverTo(m.ReceiverID, domain.NewMessageEvent{Message: *m})
	return m, nil
}

func (s *service) History(ctx context.Context, userID, contactID string) ([]domain.Message, error) {
	if contactID == "" {
		return nil, fmt.Errorf("contact_id required: %w", domain.ErrBadRequest)
	}
	return s.messages.Between(ctx, userID, contactID)
}
