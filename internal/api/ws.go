package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/playforge/playforge/internal/engine"
	"github.com/playforge/playforge/internal/sessionid"
)

// WebSocketHandler serves the chat pipeline over a WebSocket connection.
type WebSocketHandler struct {
	eng           *engine.Engine
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a WebSocket chat handler.
func NewWebSocketHandler(eng *engine.Engine, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		eng:           eng,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsInbound is a client frame.
type wsInbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// wsOutbound is a server frame.
type wsOutbound struct {
	Type   string         `json:"type"`
	Result *engine.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionid.FromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "missing or invalid session id", http.StatusUnauthorized)
		return
	}
	slog.Info("websocket chat connection", "session_id", sessionID, "ip", sessionid.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, sessionID)
	slog.Info("websocket chat ended", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("websocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: "invalid frame"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.writeJSON(ctx, ws, wsOutbound{Type: "pong"})
		case "message":
			if msg.Message == "" {
				h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: "message is required"})
				continue
			}
			res, err := h.eng.HandleMessage(ctx, sessionID, msg.Message)
			if err != nil {
				slog.Warn("websocket chat turn failed", "session_id", sessionID, "error", err)
				h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: err.Error()})
				continue
			}
			h.writeJSON(ctx, ws, wsOutbound{Type: "reply", Result: res})
		default:
			h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v wsOutbound) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Debug("failed to marshal websocket frame", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("websocket write error", "error", err)
	}
}
