package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/id"
)

// DemoPassword is the password of the seeded demo accounts.
const DemoPassword = "123456"

var demoUsers = []struct{ email, name string }{
	{"alice@test.com", "alice"},
	{"bob@test.com", "bob"},
}

type Service interface {
	SendCode(ctx context.Context, email string) error
	Register(ctx context.Context, req domain.RegisterRequest) (token string, u *domain.User, err error)
	Login(ctx context.Context, req domain.LoginRequest) (token string, u *domain.User, err error)
	LoginWithCode(ctx context.Context, req domain.CodeLoginRequest) (token string, u *domain.User, err error)
	SeedDemoUsers(ctx context.Context) error
}

type codeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	// Redeem checks the code and uses it up in one step.
	Redeem(email, supplied string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type tokenSigner interface {
	Sign(userID, username string) (string, error)
}

type service struct {
	codes  codeStore
	users  userStore
	tokens tokenSigner
	now    func() time.Time
}

func NewService(codes codeStore, users userStore, tokens tokenSigner) Service {
	return &service{codes: codes, users: users, tokens: tokens, now: time.Now}
}

// SendCode issues a code for email. A notifier failure is returned wrapped in
// domain.ErrNotifierFailure while the issued code stays valid.
func (s *service) SendCode(ctx context.Context, email string) error {
	if _, err := s.codes.Issue(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotifierFailure) {
			slog.Warn("verification code delivery failed", "email", email, "err", err)
		}
		return err
	}
	return nil
}

// Register creates an account. A duplicate email fails before the code is
// redeemed, so the code stays usable for login-with-code.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (string, *domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return "", nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", nil, err
	}
	if err := s.codes.Redeem(req.Email, req.Vericode); err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		UserID:       id.New(),
		Username:     strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Put(ctx, u); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Sign(u.UserID, u.Username)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	token, err := s.tokens.Sign(u.UserID, u.Username)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

// LoginWithCode is passwordless login. The code is redeemed only when the
// account exists, so a typo in the email does not burn it.
func (s *service) LoginWithCode(ctx context.Context, req domain.CodeLoginRequest) (string, *domain.User, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, fmt.Errorf("no account for %s: %w", req.Email, domain.ErrNotFound)
	}
	if err := s.codes.Redeem(req.Email, req.Code); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Sign(u.UserID, u.Username)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

// SeedDemoUsers creates the demo accounts that do not exist yet.
func (s *service) SeedDemoUsers(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	for _, d := range demoUsers {
		if _, err := s.users.GetByEmail(ctx, d.email); err == nil {
			continue
		}
		u := &domain.User{
			UserID:       id.New(),
			Username:     d.name,
			Email:        d.email,
			PasswordHash: string(hash),
			CreatedAt:    s.now().UTC(),
		}
		if err := s.users.Put(ctx, u); err != nil {
			return fmt.Errorf("seed %s: %w", d.email, err)
		}
		slog.Info("seeded demo user", "email", d.email, "user_id", u.UserID)
	}
	return nil
}
