package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/playforge/internal/domain"
	"github.com/playforge/playforge/internal/sessionid"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	*Handler
	ttl time.Duration
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *Handler, ttl time.Duration) *SessionHandler {
	return &SessionHandler{Handler: base, ttl: ttl}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/current", h.Current)
		r.Delete("/current", h.Delete)
	})
}

type createSessionRequest struct {
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Create starts a new session and hands the id back both in the body and
// as a cookie for browser clients.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// Body is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sess, err := h.repo.CreateSession(r.Context(), h.ttl, req.Preferences)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		FailFromError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionid.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !h.isDevelopment(),
	})

	slog.Info("session created", "session_id", sess.ID)
	JSON(w, http.StatusCreated, sessionInfo(sess))
}

// Current returns the caller's session. Access extends the expiry.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}
	JSON(w, http.StatusOK, sessionInfo(sess))
}

// Delete removes the caller's session and all its state.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteSession(r.Context(), id); err != nil {
		FailFromError(w, err)
		return
	}
	slog.Info("session deleted", "session_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func sessionInfo(sess *domain.Session) map[string]interface{} {
	info := map[string]interface{}{
		"session_id":    sess.ID,
		"created_at":    sess.CreatedAt,
		"expires_at":    sess.ExpiresAt,
		"message_count": len(sess.Messages),
		"has_game":      sess.HasGame(),
	}
	if sess.Game != nil {
		info["game_version"] = sess.Game.Version
		info["game_type"] = sess.Game.Type
	}
	return info
}
