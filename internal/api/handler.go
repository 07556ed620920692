// Package api provides HTTP handlers for the Playforge API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/playforge/playforge/internal/engine"
	"github.com/playforge/playforge/internal/gametpl"
	"github.com/playforge/playforge/internal/prompt"
	"github.com/playforge/playforge/internal/sessionid"
	"github.com/playforge/playforge/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo                store.Repository
	eng                 *engine.Engine
	frontendRedirectURL string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, eng *engine.Engine, frontendURL string) *Handler {
	return &Handler{
		repo:                repo,
		eng:                 eng,
		frontendRedirectURL: frontendURL,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// FailFromError maps pipeline and store errors onto HTTP statuses.
func FailFromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session not found or expired")
	case errors.Is(err, store.ErrVersionNotFound):
		Error(w, http.StatusNotFound, "version not found")
	case errors.Is(err, store.ErrModificationInFlight):
		Error(w, http.StatusConflict, "a modification is already in progress for this session")
	case errors.Is(err, store.ErrVersionConflict):
		Error(w, http.StatusConflict, "version conflict")
	case errors.Is(err, engine.ErrNoActiveGame):
		Error(w, http.StatusBadRequest, "no active game; create one first")
	case errors.Is(err, engine.ErrPromptTooShort), errors.Is(err, engine.ErrPromptTooLong):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prompt.ErrPayloadTooLarge):
		Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, engine.ErrValidationFailed):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, gametpl.ErrTemplateNotFound):
		Error(w, http.StatusNotFound, "template not found")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// requireSession pulls the session id off the request context, failing the
// request when none was supplied.
func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := sessionid.FromContext(r.Context())
	if id == "" {
		Error(w, http.StatusUnauthorized, "missing or invalid session id")
		return "", false
	}
	return id, true
}

// isDevelopment returns true if running in development mode.
func (h *Handler) isDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return h.frontendRedirectURL == "" ||
		strings.Contains(h.frontendRedirectURL, "localhost") ||
		strings.Contains(h.frontendRedirectURL, "127.0.0.1")
}
