package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/go-chat-realtime/internal/application/auth"
	"github.com/go-chat-realtime/internal/application/call"
	"github.com/go-chat-realtime/internal/application/chat"
	"github.com/go-chat-realtime/internal/application/gateway"
	"github.com/go-chat-realtime/internal/application/presence"
	"github.com/go-chat-realtime/internal/application/room"
	"github.com/go-chat-realtime/internal/application/user"
	"github.com/go-chat-realtime/internal/application/verification"
	"github.com/go-chat-realtime/internal/config"
	"github.com/go-chat-realtime/internal/domain"
	jwtinfra "github.com/go-chat-realtime/internal/infrastructure/jwt"
	"github.com/go-chat-realtime/internal/infrastructure/lognotify"
	"github.com/go-chat-realtime/internal/infrastructure/memory"
	s3infra "github.com/go-chat-realtime/internal/infrastructure/s3"
	"github.com/go-chat-realtime/internal/infrastructure/script"
	"github.com/go-chat-realtime/internal/infrastructure/smtp"
	"github.com/go-chat-realtime/internal/infrastructure/sns"
	transporthttp "github.com/go-chat-realtime/internal/transport/http"
)

const sweepInterval = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// JWT provider (keys from disk, throwaway key pair when they are missing).
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Printf("WARN: JWT keys not available (%v), using an ephemeral key pair", err)
		if jwtProvider, err = jwtinfra.NewEphemeralProvider(cfg.JWTExpiry); err != nil {
			log.Fatalf("jwt: %v", err)
		}
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		log.Fatalf("notifier %q: %v", cfg.Notifier, err)
	}
	codes := verification.NewStore(notifier, verification.Options{
		TTL:           cfg.CodeTTL,
		MaxAttempts:   cfg.CodeMaxAttempts,
		NotifyTimeout: cfg.NotifyTimeout,
	})

	users := memory.NewUserStore()
	messages := memory.NewMessageStore()

	pres := presence.NewRegistry(func(c domain.PresenceChange) {
		slog.Info("presence changed", "user_id", c.UserID, "status", c.Status)
	})
	rooms := room.NewRouter()
	calls := call.NewManager(call.Options{Retention: cfg.CallRetention})
	go calls.RunSweeper(ctx, sweepInterval)

	chatSvc := chat.NewService(messages, users, rooms)
	userSvc := user.NewService(users, pres)
	authSvc := auth.NewService(codes, users, jwtProvider)
	if cfg.SeedDemoUsers {
		if err := authSvc.SeedDemoUsers(ctx); err != nil {
			log.Fatalf("seed demo users: %v", err)
		}
	}

	gw := gateway.New(gateway.Deps{
		Presence: pres,
		Rooms:    rooms,
		Calls:    calls,
		Chat:     chatSvc,
		Users:    userSvc,
		Auth:     jwtProvider,
	}, gateway.Options{
		EventRate:  rate.Limit(cfg.WSEventRate),
		EventBurst: cfg.WSEventBurst,
	})

	deps := &transporthttp.Deps{
		Auth:        authSvc,
		Users:       userSvc,
		Chat:        chatSvc,
		Gateway:     gw,
		JWTProvider: jwtProvider,
	}

	// S3 media store (optional, uploads are disabled without a bucket).
	if cfg.MediaBucket != "" {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			log.Printf("WARN: media uploads disabled: %v", err)
		} else {
			deps.Media = s3infra.NewStore(s3Client, cfg.MediaBucket)
		}
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	// No WriteTimeout: it would cut long-lived websocket connections.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, notifier=%s)", cfg.AppPort, cfg.AppEnv, cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func newNotifier(ctx context.Context, cfg *config.Config) (verification.Notifier, error) {
	switch cfg.Notifier {
	case "smtp":
		return smtp.NewCodeNotifier(smtp.NewMailer(cfg), cfg.CodeTTL), nil
	case "script":
		return script.NewNotifier(cfg.NotifyScript)
	case "sns":
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sns.NewCodeNotifier(client, cfg.SNSTopicARN)
	case "log", "":
		return lognotify.NewNotifier(slog.Default()), nil
	}
	return nil, errors.New("unknown notifier (want smtp, script, sns or log)")
}
