package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/playforge/internal/gametpl"
)

// TemplateHandler serves the starter template catalog.
type TemplateHandler struct {
	registry *gametpl.Registry
}

// NewTemplateHandler creates a template handler.
func NewTemplateHandler(registry *gametpl.Registry) *TemplateHandler {
	return &TemplateHandler{registry: registry}
}

// RegisterRoutes registers template routes.
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{templateID}", h.Get)
		r.Get("/{templateID}/preview", h.Preview)
	})
}

// List returns all starter templates without code.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"templates": h.registry.List(),
	})
}

// Get returns one template's metadata.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.registry.Get(chi.URLParam(r, "templateID"))
	if err != nil {
		FailFromError(w, err)
		return
	}
	JSON(w, http.StatusOK, tpl)
}

// Preview serves the template rendered with default values as playable HTML.
func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	code, err := h.registry.Render(chi.URLParam(r, "templateID"), nil)
	if err != nil {
		FailFromError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(code))
}
