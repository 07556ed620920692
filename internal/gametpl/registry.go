// Package gametpl embeds the built-in starter game templates and renders
// them by substituting {{variable}} placeholders.
package gametpl

import (
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/playforge/playforge/internal/domain"
)

//go:embed templates
var templateFS embed.FS

// ErrTemplateNotFound is returned for unknown template ids.
var ErrTemplateNotFound = errors.New("template not found")

var placeholderExpr = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template is one starter game.
type Template struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        domain.GameType `json:"type"`
	Engine      domain.Engine   `json:"engine"`
	Variables   []string        `json:"variables"`

	code string
}

var metadata = map[string]Template{
	"default_platformer": {
		ID:          "default_platformer",
		Name:        "Platformer",
		Description: "Side-view platformer with gravity, jumping and platforms",
		Type:        domain.GameTypePlatformer,
		Engine:      domain.EngineCanvas,
	},
	"default_shooter": {
		ID:          "default_shooter",
		Name:        "Space Shooter",
		Description: "Top-down shooter with enemies, bullets and scoring",
		Type:        domain.GameTypeShooter,
		Engine:      domain.EngineCanvas,
	},
	"default_puzzle": {
		ID:          "default_puzzle",
		Name:        "Sliding Puzzle",
		Description: "Click-driven 15-puzzle on a 4x4 grid",
		Type:        domain.GameTypePuzzle,
		Engine:      domain.EngineCanvas,
	},
}

var fileByID = map[string]string{
	"default_platformer": "templates/platformer.html",
	"default_shooter":    "templates/shooter.html",
	"default_puzzle":     "templates/puzzle.html",
}

// Registry serves the embedded starter templates.
type Registry struct {
	templates map[string]Template
}

// NewRegistry loads the embedded templates. Fails only if the embedded
// files and the metadata table disagree, which is a build defect.
func NewRegistry() (*Registry, error) {
	templates := make(map[string]Template, len(metadata))
	for id, meta := range metadata {
		path, ok := fileByID[id]
		if !ok {
			return nil, fmt.Errorf("template %q has no embedded file", id)
		}
		code, err := fs.ReadFile(templateFS, path)
		if err != nil {
			return nil, fmt.Errorf("read embedded template %q: %w", id, err)
		}
		meta.code = string(code)
		meta.Variables = extractVariables(meta.code)
		templates[id] = meta
	}
	return &Registry{templates: templates}, nil
}

// List returns all templates sorted by id. Code is not included.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a template by id.
func (r *Registry) Get(id string) (Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

// ByType returns the starter template for a game type, falling back to the
// platformer when the type has no dedicated starter.
func (r *Registry) ByType(gameType domain.GameType) Template {
	for _, t := range r.templates {
		if t.Type == gameType {
			return t
		}
	}
	return r.templates["default_platformer"]
}

// Render substitutes placeholder values into the template code. Unknown
// variables keep their placeholder; values are HTML-escaped.
func (r *Registry) Render(id string, values map[string]string) (string, error) {
	t, ok := r.templates[id]
	if !ok {
		return "", ErrTemplateNotFound
	}
	code := t.code
	for _, name := range t.Variables {
		val, ok := values[name]
		if !ok {
			val = defaultValue(name)
		}
		code = strings.ReplaceAll(code, "{{"+name+"}}", html.EscapeString(val))
	}
	return code, nil
}

func defaultValue(name string) string {
	switch name {
	case "game_title":
		return "My Game"
	case "background_color":
		return "#222222"
	case "player_color":
		return "#3498db"
	default:
		return ""
	}
}

func extractVariables(code string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderExpr.FindAllStringSubmatch(code, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}
