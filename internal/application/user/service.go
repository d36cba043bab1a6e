package user

import (
	"context"

	"github.com/go-chat-realtime/internal/domain"
)

type Service interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	// Friends lists every other registered user with their live presence.
	Friends(ctx context.Context, userID string) ([]domain.Friend, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type presenceReader interface {
	Status(userID string) domain.PresenceStatus
}

type service struct {
	repo     userStore
	presence presenceReader
}

func NewService(repo userStore, presence presenceReader) Service {
	return &service{repo: repo, presence: presence}
}

func (s *service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Friends(ctx context.Context, userID string) ([]domain.Friend, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Friend, 0, len(users))
	for _, u := range users {
		if u.UserID == userID {
			continue
		}
		out = append(out, domain.Friend{
			UserID:   u.UserID,
			Username: u.Username,
			Email:    u.Email,
			Status:   s.presence.Status(u.UserID),
		})
	}
	return out, nil
}
