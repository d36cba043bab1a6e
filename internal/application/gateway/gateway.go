package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-chat-realtime/internal/application/call"
	"github.com/go-chat-realtime/internal/application/presence"
	"github.com/go-chat-realtime/internal/application/room"
	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/validate"
)

// Authenticator resolves the token carried by a join event to a user id.
type Authenticator interface {
	Authenticate(token string) (userID string, err error)
}

type messenger interface {
	Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error)
}

type directory interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type Deps struct {
	Presence *presence.Registry
	Rooms    *room.Router
	Calls    *call.Manager
	Chat     messenger
	Users    directory
	Auth     Authenticator
}

// Status values accepted by UpdateCallStatus.
const (
	CallStatusAccepted = "accepted"
	CallStatusRejected = "rejected"
	CallStatusEnded    = "ended"
)

type Options struct {
	// EventRate and EventBurst bound inbound events per connection.
	// A non-positive rate disables the limit.
	EventRate  rate.Limit
	EventBurst int
	Now        func() time.Time
}

type binding struct {
	conn        room.Conn
	userID      string // empty until join
	connectedAt time.Time
	limiter     *rate.Limiter
}

// Gateway owns the connection lifecycle. Each OnConnect, OnEvent and
// OnDisconnect runs to completion under one lock, so handling of a single
// event is atomic with respect to presence, rooms and call sessions.
// Outbound sends never block (room.Conn.Send is non-blocking).
type Gateway struct {
	mu       sync.Mutex
	conns    map[string]*binding
	presence *presence.Registry
	rooms    *room.Router
	calls    *call.Manager
	chat     messenger
	users    directory
	auth     Authenticator
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func New(deps Deps, opts Options) *Gateway {
	if opts.EventRate <= 0 {
		opts.EventRate = rate.Inf
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{
		conns:    make(map[string]*binding),
		presence: deps.Presence,
		rooms:    deps.Rooms,
		calls:    deps.Calls,
		chat:     deps.Chat,
		users:    deps.Users,
		auth:     deps.Auth,
		rate:     opts.EventRate,
		burst:    opts.EventBurst,
		now:      opts.Now,
	}
}

// OnConnect registers an unbound connection.
func (g *Gateway) OnConnect(c room.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[c.ID()] = &binding{
		conn:        c,
		connectedAt: g.now(),
		limiter:     rate.NewLimiter(g.rate, g.burst),
	}
	slog.Debug("realtime connection opened", "conn_id", c.ID())
}

// OnEvent dispatches one inbound event. A failure is reported to the
// connection as an error event and also returned.
func (g *Gateway) OnEvent(ctx context.Context, c room.Conn, name string, payload json.RawMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.dispatchLocked(ctx, c, name, payload)
	if err != nil {
		c.Send(domain.ErrorEvent{Event: name, Code: domain.ErrorCode(err), Message: err.Error()})
	}
	return err
}

// OnDisconnect tears the connection down. When it was the user's last one,
// the user goes offline and every live call of theirs ends.
func (g *Gateway) OnDisconnect(c room.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.conns[c.ID()]
	if !ok {
		return
	}
	delete(g.conns, c.ID())
	if b.userID != "" {
		g.unbindLocked(b)
	}
	slog.Debug("realtime connection closed", "conn_id", c.ID(), "lifetime", g.now().Sub(b.connectedAt))
}

// Bound returns the user id bound to a connection, or "".
func (g *Gateway) Bound(connID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.conns[connID]; ok {
		return b.userID
	}
	return ""
}

func (g *Gateway) dispatchLocked(ctx context.Context, c room.Conn, name string, payload json.RawMessage) error {
	b, ok := g.conns[c.ID()]
	if !ok {
		return fmt.Errorf("connection %s is not registered: %w", c.ID(), domain.ErrUnbound)
	}
	if !b.limiter.Allow() {
		return fmt.Errorf("too many events: %w", domain.ErrRateLimited)
	}

	event := Canonical(name)
	switch event {
	case evPing:
		b.conn.Send(domain.PongEvent{})
		return nil
	case evJoin:
		var p joinPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return g.joinLocked(b, p)
	}

	if b.userID == "" {
		return fmt.Errorf("%s before join: %w", event, domain.ErrUnbound)
	}

	switch event {
	case evSendMessage:
		var p sendMessagePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return g.sendMessageLocked(ctx, b, p)
	case evCallInitiate:
		var p initiatePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return g.initiateLocked(ctx, b, p)
	case evCallAccept:
		var p answerPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		_, err := g.acceptLocked(p.SessionID, b.userID)
		return err
	case evCallReject:
		var p answerPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		_, err := g.rejectLocked(p.SessionID, b.userID)
		return err
	case evHangUp:
		var p hangUpPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		return g.hangUpLocked(b, p)
	case evVideoFrame:
		var p videoFramePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if !g.calls.CanRelay(p.SessionID, b.userID, p.TargetUserID) {
			slog.Debug("dropped video frame", "session_id", p.SessionID, "from", b.userID)
			return nil
		}
		g.rooms.DeliverTo(p.TargetUserID, domain.VideoFrameEvent{
			SessionID:    p.SessionID,
			FromUserID:   b.userID,
			TargetUserID: p.TargetUserID,
			Payload:      p.Payload,
		})
		return nil
	}
	return fmt.Errorf("unknown event %q: %w", name, domain.ErrBadRequest)
}

func (g *Gateway) joinLocked(b *binding, p joinPayload) error {
	userID, err := g.auth.Authenticate(p.Token)
	if err != nil {
		return err
	}
	if p.UserID != "" && p.UserID != userID {
		return fmt.Errorf("token does not belong to %s: %w", p.UserID, domain.ErrForbidden)
	}
	if b.userID != userID {
		if b.userID != "" {
			g.unbindLocked(b)
		}
		b.userID = userID
		g.rooms.Join(userID, b.conn)
		if change, ok := g.presence.MarkOnline(userID); ok {
			g.rooms.Broadcast(domain.FriendStatusChangeEvent{PresenceChange: change}, b.conn.ID())
		}
		slog.Info("realtime connection joined", "conn_id", b.conn.ID(), "user_id", userID)
	}
	b.conn.Send(domain.JoinedEvent{UserID: userID, Online: g.presence.Snapshot()})
	return nil
}

// unbindLocked reverses a join. The caller clears or drops the binding.
func (g *Gateway) unbindLocked(b *binding) {
	userID := b.userID
	b.userID = ""
	g.rooms.Leave(userID, b.conn)
	change, ok := g.presence.MarkOffline(userID)
	if !ok {
		return
	}
	g.rooms.Broadcast(domain.FriendStatusChangeEvent{PresenceChange: change}, "")
	for _, s := range g.calls.EndAllFor(userID) {
		g.rooms.DeliverTo(s.Peer(userID), domain.CallStatusChangedEvent{
			SessionID: s.SessionID,
			Status:    s.State,
			Reason:    s.EndReason,
			By:        userID,
		})
	}
	slog.Info("user went offline", "user_id", userID)
}

func (g *Gateway) sendMessageLocked(ctx context.Context, b *binding, p sendMessagePayload) error {
	m, err := g.chat.Send(ctx, b.userID, domain.SendMessageRequest{
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
		Type:       p.MessageType,
	})
	if err != nil {
		return err
	}
	b.conn.Send(domain.MessageSentEvent{Message: *m})
	return nil
}

func (g *Gateway) initiateLocked(ctx context.Context, b *binding, p initiatePayload) error {
	s, err := g.startCallLocked(ctx, b.userID, p.target())
	if err != nil {
		return err
	}
	b.conn.Send(domain.CallInitiatedEvent{SessionID: s.SessionID, ParticipantID: s.ParticipantID, Status: s.State})
	return nil
}

func (g *Gateway) hangUpLocked(b *binding, p hangUpPayload) error {
	_, err := g.endCallLocked(p.SessionID, b.userID)
	if errors.Is(err, domain.ErrUnknownSession) {
		// already swept; a late hang up is not worth an error on the client
		return nil
	}
	return err
}

// StartCall opens a session for callerID outside the websocket path. The
// caller's own connections get call_initiated, the participant's get
// incoming_call.
func (g *Gateway) StartCall(ctx context.Context, callerID, participantID string) (*domain.CallSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, err := g.startCallLocked(ctx, callerID, participantID)
	if err != nil {
		return nil, err
	}
	g.rooms.DeliverTo(callerID, domain.CallInitiatedEvent{SessionID: s.SessionID, ParticipantID: s.ParticipantID, Status: s.State})
	return s, nil
}

// UpdateCallStatus applies an answer or hang up on behalf of userID and sends
// the same targeted events as the websocket path. status is one of
// accepted, rejected or ended.
func (g *Gateway) UpdateCallStatus(userID, sessionID, status string) (*domain.CallSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch status {
	case CallStatusAccepted:
		return g.acceptLocked(sessionID, userID)
	case CallStatusRejected:
		return g.rejectLocked(sessionID, userID)
	case CallStatusEnded:
		return g.endCallLocked(sessionID, userID)
	}
	return nil, fmt.Errorf("status %q (want accepted, rejected or ended): %w", status, domain.ErrBadRequest)
}

func (g *Gateway) startCallLocked(ctx context.Context, callerID, target string) (*domain.CallSession, error) {
	if target != "" && target != callerID {
		if _, err := g.users.Profile(ctx, target); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("unknown participant %s: %w", target, domain.ErrInvalidTarget)
			}
			return nil, err
		}
	}
	s, err := g.calls.Initiate(callerID, target)
	if err != nil {
		return nil, err
	}
	g.rooms.DeliverTo(s.ParticipantID, domain.IncomingCallEvent{
		SessionID:  s.SessionID,
		CallerID:   callerID,
		CallerName: g.displayName(ctx, callerID),
	})
	return s, nil
}

func (g *Gateway) acceptLocked(sessionID, userID string) (*domain.CallSession, error) {
	s, err := g.calls.Accept(sessionID, userID)
	if err != nil {
		return nil, err
	}
	g.rooms.DeliverTo(s.InitiatorID, domain.CallAcceptedEvent{SessionID: s.SessionID, ParticipantID: userID})
	return s, nil
}

func (g *Gateway) rejectLocked(sessionID, userID string) (*domain.CallSession, error) {
	s, err := g.calls.Reject(sessionID, userID)
	if err != nil {
		return nil, err
	}
	g.rooms.DeliverTo(s.InitiatorID, domain.CallRejectedEvent{SessionID: s.SessionID, ParticipantID: userID})
	return s, nil
}

// endCallLocked hangs up and tells the peer, unless the session had
// already ended.
func (g *Gateway) endCallLocked(sessionID, userID string) (*domain.CallSession, error) {
	s, ended, err := g.calls.HangUp(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if ended {
		g.rooms.DeliverTo(s.Peer(userID), domain.CallStatusChangedEvent{
			SessionID: s.SessionID,
			Status:    s.State,
			Reason:    s.EndReason,
			By:        userID,
		})
	}
	return s, nil
}

func (g *Gateway) displayName(ctx context.Context, userID string) string {
	u, err := g.users.Profile(ctx, userID)
	if err != nil || u.Username == "" {
		return userID
	}
	return u.Username
}

func decode(payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("malformed payload: %w", domain.ErrBadRequest)
	}
	return validate.Struct(dst)
}
