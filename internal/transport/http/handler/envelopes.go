package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chat-realtime/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Failures always carry a
// stable code next to the human-readable error.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AuthEnvelope wraps login/register responses.
type AuthEnvelope struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type UserEnvelope struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

type FriendsEnvelope struct {
	Success bool            `json:"success"`
	Friends []domain.Friend `json:"friends"`
}

type MessagesEnvelope struct {
	Success  bool             `json:"success"`
	Messages []domain.Message `json:"messages"`
}

type ChatMessageEnvelope struct {
	Success bool            `json:"success"`
	Data    *domain.Message `json:"data"`
}

type SessionEnvelope struct {
	Success bool                `json:"success"`
	Session *domain.CallSession `json:"session"`
}

type MediaEnvelope struct {
	Success bool               `json:"success"`
	URL     string             `json:"url"`
	Type    domain.MessageType `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, Code: code})
}

// writeDomainError maps a service error to its HTTP status. Errors that wrap
// no domain sentinel are logged and hidden behind a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotifierFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTooManyAttempts), errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrWrongCode),
		errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}
