package handler

import (
	"net/http"

	"github.com/go-chat-realtime/internal/application/chat"
	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/transport/http/middleware"
)

type ChatHandler struct {
	svc chat.Service
}

func NewChatHandler(svc chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), r.URL.Query().Get("contact_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesEnvelope{Success: true, Messages: msgs})
}

// Send records a message and pushes new_message to the receiver's live
// connections only.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	m, err := h.svc.Send(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ChatMessageEnvelope{Success: true, Data: m})
}
