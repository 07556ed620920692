package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/playforge/internal/domain"
)

// GameHandler handles game state and version endpoints.
type GameHandler struct {
	*Handler
}

// NewGameHandler creates a game handler.
func NewGameHandler(base *Handler) *GameHandler {
	return &GameHandler{Handler: base}
}

// RegisterRoutes registers game routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/games", func(r chi.Router) {
		r.Get("/current", h.Current)
		r.Get("/current/code", h.Code)
		r.Get("/versions", h.Versions)
		r.Post("/rollback", h.Rollback)
	})
}

// Current returns the session's game state without the code body.
func (h *GameHandler) Current(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	game, err := h.repo.CurrentGameState(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}
	if game == nil {
		Error(w, http.StatusNotFound, "no game in this session yet")
		return
	}
	JSON(w, http.StatusOK, gameInfo(game))
}

// Code serves the current game as a playable HTML document.
func (h *GameHandler) Code(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	game, err := h.repo.CurrentGameState(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}
	if game == nil {
		Error(w, http.StatusNotFound, "no game in this session yet")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(game.Code)); err != nil {
		slog.Debug("failed to write game code", "session_id", id, "error", err)
	}
}

// Versions lists the session's version history, code bodies omitted.
func (h *GameHandler) Versions(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}
	versions, err := h.repo.Versions(r.Context(), id)
	if err != nil {
		FailFromError(w, err)
		return
	}

	out := make([]map[string]interface{}, len(versions))
	for i, v := range versions {
		out[i] = map[string]interface{}{
			"version":    v.Version,
			"summary":    v.Summary,
			"code_size":  v.CodeSize,
			"created_at": v.CreatedAt,
		}
		if v.Diff != nil {
			out[i]["diff"] = v.Diff
		}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"versions": out})
}

type rollbackRequest struct {
	Version int `json:"version"`
}

// Rollback restores a prior version. The restored code is appended as a
// new version; history is never rewritten.
func (h *GameHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version <= 0 {
		Error(w, http.StatusBadRequest, "version must be a positive integer")
		return
	}

	game, err := h.eng.Rollback(r.Context(), id, req.Version)
	if err != nil {
		FailFromError(w, err)
		return
	}
	slog.Info("game rolled back",
		"session_id", id,
		"target_version", req.Version,
		"new_version", game.Version)
	JSON(w, http.StatusOK, gameInfo(game))
}

func gameInfo(game *domain.GameState) map[string]interface{} {
	return map[string]interface{}{
		"game_id":    game.GameID,
		"version":    game.Version,
		"type":       game.Type,
		"engine":     game.Engine,
		"features":   game.Features,
		"code_size":  len(game.Code),
		"updated_at": game.UpdatedAt,
	}
}
