package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/transport/http/middleware"
)

type callSignaler interface {
	StartCall(ctx context.Context, callerID, participantID string) (*domain.CallSession, error)
	UpdateCallStatus(userID, sessionID, status string) (*domain.CallSession, error)
}

// CallHandler is the REST entry into call signaling. Events go to the two
// parties' rooms only.
type CallHandler struct {
	calls callSignaler
}

func NewCallHandler(calls callSignaler) *CallHandler {
	return &CallHandler{calls: calls}
}

func (h *CallHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.StartCallRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.calls.StartCall(r.Context(), middleware.UserIDFromContext(r.Context()), req.ParticipantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionEnvelope{Success: true, Session: s})
}

func (h *CallHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	var req domain.CallStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.calls.UpdateCallStatus(middleware.UserIDFromContext(r.Context()), sessionID, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Success: true, Session: s})
}
