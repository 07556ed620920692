package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/playforge/internal/engine"
)

// maxMessageBytes bounds the chat request body.
const maxMessageBytes = 64 << 10

// ChatHandler handles the conversational endpoints.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/message", h.Message)
		r.Get("/history", h.History)
		r.Post("/reset", h.Reset)
		r.Get("/suggestions", h.Suggestions)
	})
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

// Message runs one chat turn through the engine.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req chatMessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.eng.HandleMessage(r.Context(), id, req.Message)
	if err != nil {
		slog.Warn("chat turn failed", "session_id", id, "error", err)
		FailFromError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// History returns the session's conversation.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"messages":   sess.Messages,
	})
}

// Reset clears the conversation, leaving the game and versions intact.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.repo.ResetConversation(r.Context(), id); err != nil {
		FailFromError(w, err)
		return
	}
	slog.Info("conversation reset", "session_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Suggestions returns prompt ideas for the session's current state.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": engine.Suggestions(sess.Game),
	})
}
