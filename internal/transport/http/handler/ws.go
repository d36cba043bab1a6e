package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/go-chat-realtime/internal/application/room"
	"github.com/go-chat-realtime/internal/infrastructure/ws"
)

type realtime interface {
	OnConnect(c room.Conn)
	OnEvent(ctx context.Context, c room.Conn, name string, payload json.RawMessage) error
	OnDisconnect(c room.Conn)
}

// WSHandler upgrades /ws requests and pumps frames between the socket and
// the realtime gateway.
type WSHandler struct {
	gw         realtime
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewWSHandler(gw realtime, allowedOrigins []string, sendBuffer int) *WSHandler {
	return &WSHandler{gw: gw, upgrader: ws.NewUpgrader(allowedOrigins), sendBuffer: sendBuffer}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := ws.NewConn(sock, h.sendBuffer)
	h.gw.OnConnect(c)
	go c.WritePump()

	ctx := context.WithoutCancel(r.Context())
	// ?token= binds at upgrade time, as older clients expect; a bad token
	// leaves the connection unbound with an error event.
	if tok := r.URL.Query().Get("token"); tok != "" {
		payload, _ := json.Marshal(map[string]string{"token": tok})
		if err := h.gw.OnEvent(ctx, c, "join", payload); err != nil {
			slog.Debug("query token join rejected", "conn_id", c.ID(), "err", err)
		}
	}
	c.ReadPump(func(name string, payload json.RawMessage) {
		if err := h.gw.OnEvent(ctx, c, name, payload); err != nil {
			slog.Debug("realtime event rejected", "conn_id", c.ID(), "event", name, "err", err)
		}
	})

	h.gw.OnDisconnect(c)
	c.Close()
}
