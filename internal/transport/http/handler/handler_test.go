package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-chat-realtime/internal/domain"
	jwtinfra "github.com/go-chat-realtime/internal/infrastructure/jwt"
	"github.com/go-chat-realtime/internal/transport/http/middleware"
)

// --- mocks ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SendCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}
func (m *mockAuthSvc) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}
func (m *mockAuthSvc) LoginWithCode(ctx context.Context, req domain.CodeLoginRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}
func (m *mockAuthSvc) SeedDemoUsers(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockChatSvc struct{ mock.Mock }

func (m *mockChatSvc) Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error) {
	args := m.Called(ctx, senderID, req)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}
func (m *mockChatSvc) History(ctx context.Context, userID, contactID string) ([]domain.Message, error) {
	args := m.Called(ctx, userID, contactID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

type mockMediaStore struct{ mock.Mock }

func (m *mockMediaStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}
func (m *mockMediaStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

// authed runs h behind the real Auth middleware as user u1.
func authed(t *testing.T, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	p, err := jwtinfra.NewEphemeralProvider(time.Hour)
	require.NoError(t, err)
	tok, err := p.Sign("u1", "alice")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	middleware.Auth(p)(h).ServeHTTP(rr, req)
	return rr
}

// --- auth ---

func TestSendCode_OK(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("SendCode", mock.Anything, "a@test.com").Return(nil)
	rr := postJSON(t, NewAuthHandler(svc).SendCode, `{"email":"a@test.com"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeEnvelope(t, rr).Success)
}

func TestSendCode_InvalidEmail(t *testing.T) {
	svc := new(mockAuthSvc)
	rr := postJSON(t, NewAuthHandler(svc).SendCode, `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "bad_request", env.Code)
	assert.Contains(t, env.Error, "email")
	svc.AssertNotCalled(t, "SendCode", mock.Anything, mock.Anything)
}

func TestSendCode_NotifierFailure(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("SendCode", mock.Anything, "a@test.com").
		Return(fmt.Errorf("deliver code: %w: %w", domain.ErrNotifierFailure, errors.New("smtp down")))
	rr := postJSON(t, NewAuthHandler(svc).SendCode, `{"email":"a@test.com"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "notifier_failure", decodeEnvelope(t, rr).Code)
}

func TestLoginWithCode_DistinctErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("29 attempts left: %w", domain.ErrWrongCode), http.StatusBadRequest, "wrong_code"},
		{domain.ErrExpired, http.StatusGone, "expired"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := new(mockAuthSvc)
			svc.On("LoginWithCode", mock.Anything, domain.CodeLoginRequest{Email: "a@test.com", Code: "ABC234"}).
				Return("", nil, tc.err)
			rr := postJSON(t, NewAuthHandler(svc).LoginWithCode, `{"email":"a@test.com","code":"ABC234"}`)
			assert.Equal(t, tc.status, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.Equal(t, tc.code, env.Code)
			assert.Equal(t, tc.err.Error(), env.Error)
		})
	}
}

func TestLogin_ReturnsTokenAndUser(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "a@test.com", Password: "123456"}).
		Return("tok", &domain.User{UserID: "u1", Username: "alice", PasswordHash: "secret-hash"}, nil)

	rr := postJSON(t, NewAuthHandler(svc).Login, `{"email":"a@test.com","password":"123456"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "tok", env.Token)
	assert.Equal(t, "u1", env.User.UserID)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
}

func TestRegister_Conflict(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Register", mock.Anything, mock.Anything).Return("", nil, fmt.Errorf("email already registered: %w", domain.ErrConflict))
	rr := postJSON(t, NewAuthHandler(svc).Register, `{"email":"a@test.com","name":"al","password":"123456","vericode":"ABC234"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Login", mock.Anything, mock.Anything).Return("", nil, errors.New("disk on fire"))
	rr := postJSON(t, NewAuthHandler(svc).Login, `{"email":"a@test.com","password":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "internal", env.Code)
	assert.Equal(t, "internal error", env.Error)
}

// --- chat ---

func TestChatSend_UsesAuthenticatedSender(t *testing.T) {
	svc := new(mockChatSvc)
	svc.On("Send", mock.Anything, "u1", domain.SendMessageRequest{ReceiverID: "u2", Content: "hi"}).
		Return(&domain.Message{MessageID: "m1", SenderID: "u1", ReceiverID: "u2", Content: "hi"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"receiver_id":"u2","content":"hi","sender_id":"u9"}`))
	rr := authed(t, NewChatHandler(svc).Send, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestChatHistory(t *testing.T) {
	svc := new(mockChatSvc)
	svc.On("History", mock.Anything, "u1", "u2").Return([]domain.Message{{MessageID: "m1"}}, nil)

	rr := authed(t, NewChatHandler(svc).History, httptest.NewRequest(http.MethodGet, "/?contact_id=u2", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var env MessagesEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Len(t, env.Messages, 1)
}

// --- media ---

func multipartRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMediaUpload_Image(t *testing.T) {
	store := new(mockMediaStore)
	store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "media/u1/") && strings.HasSuffix(key, ".png")
	}), "image/png").Return("s3://bucket/key", nil)
	store.On("PresignedURL", mock.Anything, mock.Anything, time.Hour).Return("https://signed", nil)

	rr := authed(t, NewMediaHandler(store, time.Hour).Upload, multipartRequest(t, "Cat.PNG", "", []byte("png")))
	assert.Equal(t, http.StatusCreated, rr.Code)
	var env MediaEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "https://signed", env.URL)
	assert.Equal(t, domain.MessageImage, env.Type)
}

func TestMediaUpload_RejectsOtherTypes(t *testing.T) {
	store := new(mockMediaStore)
	rr := authed(t, NewMediaHandler(store, time.Hour).Upload, multipartRequest(t, "doc.pdf", "application/pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUpload_MissingFile(t *testing.T) {
	rr := authed(t, NewMediaHandler(new(mockMediaStore), time.Hour).Upload, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- health ---

func TestHealthPing(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/health-check/{action}", NewHealthHandler().Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decodeEnvelope(t, rr).Message)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/boom", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- calls ---

type mockCalls struct{ mock.Mock }

func (m *mockCalls) StartCall(ctx context.Context, callerID, participantID string) (*domain.CallSession, error) {
	args := m.Called(ctx, callerID, participantID)
	s, _ := args.Get(0).(*domain.CallSession)
	return s, args.Error(1)
}
func (m *mockCalls) UpdateCallStatus(userID, sessionID, status string) (*domain.CallSession, error) {
	args := m.Called(userID, sessionID, status)
	s, _ := args.Get(0).(*domain.CallSession)
	return s, args.Error(1)
}

func callRouter(h *CallHandler) http.HandlerFunc {
	r := chi.NewRouter()
	r.Post("/video/sessions", h.Create)
	r.Put("/video/sessions/{sessionId}/status", h.UpdateStatus)
	return r.ServeHTTP
}

func TestCallCreate_StartsAsAuthenticatedUser(t *testing.T) {
	calls := new(mockCalls)
	calls.On("StartCall", mock.Anything, "u1", "u2").
		Return(&domain.CallSession{SessionID: "s1", InitiatorID: "u1", ParticipantID: "u2", State: domain.CallCalling}, nil)

	req := httptest.NewRequest(http.MethodPost, "/video/sessions", strings.NewReader(`{"participant_id":"u2"}`))
	rr := authed(t, callRouter(NewCallHandler(calls)), req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	var env SessionEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "s1", env.Session.SessionID)
	assert.Equal(t, domain.CallCalling, env.Session.State)
}

func TestCallCreate_UnknownParticipant(t *testing.T) {
	calls := new(mockCalls)
	calls.On("StartCall", mock.Anything, "u1", "zed").Return(nil, fmt.Errorf("unknown participant zed: %w", domain.ErrInvalidTarget))

	req := httptest.NewRequest(http.MethodPost, "/video/sessions", strings.NewReader(`{"participant_id":"zed"}`))
	rr := authed(t, callRouter(NewCallHandler(calls)), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_target", decodeEnvelope(t, rr).Code)
}

func TestCallUpdateStatus_UsesPathSessionID(t *testing.T) {
	calls := new(mockCalls)
	calls.On("UpdateCallStatus", "u1", "s1", "accepted").
		Return(&domain.CallSession{SessionID: "s1", State: domain.CallConnected}, nil)

	req := httptest.NewRequest(http.MethodPut, "/video/sessions/s1/status", strings.NewReader(`{"status":"accepted"}`))
	rr := authed(t, callRouter(NewCallHandler(calls)), req)
	assert.Equal(t, http.StatusOK, rr.Code)
	calls.AssertExpectations(t)
}

func TestCallUpdateStatus_ErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrUnknownSession, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tc := range cases {
		calls := new(mockCalls)
		calls.On("UpdateCallStatus", "u1", "s1", "ended").Return(nil, tc.err)
		req := httptest.NewRequest(http.MethodPut, "/video/sessions/s1/status", strings.NewReader(`{"status":"ended"}`))
		rr := authed(t, callRouter(NewCallHandler(calls)), req)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestCallUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	calls := new(mockCalls)
	req := httptest.NewRequest(http.MethodPut, "/video/sessions/s1/status", strings.NewReader(`{"status":"paused"}`))
	rr := authed(t, callRouter(NewCallHandler(calls)), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	calls.AssertNotCalled(t, "UpdateCallStatus", mock.Anything, mock.Anything, mock.Anything)
}
