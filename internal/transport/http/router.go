package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/go-chat-realtime/internal/config"
	"github.com/go-chat-realtime/internal/transport/http/handler"
	appmiddleware "github.com/go-chat-realtime/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// background cleanup of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, on the unauthenticated auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth)
	userH := handler.NewUserHandler(deps.Users)
	chatH := handler.NewChatHandler(deps.Chat)
	callH := handler.NewCallHandler(deps.Gateway)
	wsH := handler.NewWSHandler(deps.Gateway, cfg.AllowedOrigins, cfg.WSSendBuffer)

	r.Get("/v1/health-check/{action}", healthH.Ping)
	r.Get("/ws", wsH.Serve)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/auth/send-code", authH.SendCode)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/login-with-code", authH.LoginWithCode)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Get("/users/profile", userH.Profile)
			r.Get("/friends", userH.Friends)
			r.Get("/chat/messages", chatH.History)
			r.Post("/chat/messages", chatH.Send)
			r.Post("/video/sessions", callH.Create)
			r.Put("/video/sessions/{sessionId}/status", callH.UpdateStatus)
			if deps.Media != nil {
				mediaH := handler.NewMediaHandler(deps.Media, cfg.MediaURLTTL)
				r.Post("/media", mediaH.Upload)
			}
		})
	})

	return r
}
