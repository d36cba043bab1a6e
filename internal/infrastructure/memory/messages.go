package memory

import (
	"context"
	"sync"

	"github.com/go-chat-realtime/internal/domain"
)

// MessageStore is an append-only message log.
type MessageStore struct {
	mu   sync.RWMutex
	msgs []domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) Append(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, *m)
	s.mu.Unlock()
	return nil
}

// Between returns the conversation of two users in append order.
func (s *MessageStore) Between(_ context.Context, a, b string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Message{}
	for _, m := range s.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}
