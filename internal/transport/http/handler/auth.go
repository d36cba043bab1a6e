package handler

import (
	"errors"
	"net/http"

	"github.com/go-chat-realtime/internal/application/auth"
	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/validate"
)

// AuthHandler serves verification codes, registration and login.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.SendCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrNotifierFailure) {
			writeError(w, http.StatusBadGateway, domain.ErrorCode(err), "could not deliver the verification code, please retry")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "verification code sent"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{Success: true, Token: token, User: u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, u, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: token, User: u})
}

func (h *AuthHandler) LoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req domain.CodeLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, u, err := h.svc.LoginWithCode(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: token, User: u})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeBody(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeDomainError(w, err)
		return false
	}
	return true
}
