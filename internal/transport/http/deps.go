package http

import (
	"context"
	"io"
	"time"

	"github.com/go-chat-realtime/internal/application/auth"
	"github.com/go-chat-realtime/internal/application/chat"
	"github.com/go-chat-realtime/internal/application/gateway"
	"github.com/go-chat-realtime/internal/application/user"
	jwtinfra "github.com/go-chat-realtime/internal/infrastructure/jwt"
)

// MediaStore is the minimal interface the router requires from an object storage backend.
type MediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deps holds the services the router exposes. Media is nil when uploads are
// disabled.
type Deps struct {
	Auth        auth.Service
	Users       user.Service
	Chat        chat.Service
	Gateway     *gateway.Gateway
	JWTProvider *jwtinfra.Provider
	Media       MediaStore
}
