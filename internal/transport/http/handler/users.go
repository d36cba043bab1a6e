package handler

import (
	"net/http"

	"github.com/go-chat-realtime/internal/application/user"
	"github.com/go-chat-realtime/internal/transport/http/middleware"
)

// UserHandler handles profile and friend-list endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{Success: true, User: u})
}

func (h *UserHandler) Friends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.svc.Friends(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FriendsEnvelope{Success: true, Friends: friends})
}
