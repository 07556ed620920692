package domain

import (
	"fmt"
	"time"
)

// GameType categorizes generated games.
type GameType string

const (
	GameTypePlatformer GameType = "platformer"
	GameTypeShooter    GameType = "shooter"
	GameTypePuzzle     GameType = "puzzle"
	GameTypeRacing     GameType = "racing"
	GameTypeArcade     GameType = "arcade"
)

// Engine identifies the JS game engine a game is built on.
type Engine string

const (
	EnginePhaser Engine = "phaser"
	EngineThree  Engine = "three"
	EngineP5     Engine = "p5"
	EngineCanvas Engine = "canvas"
)

// GameVersion is one immutable snapshot of a game's code.
// Version numbers start at 1 and increase by exactly one per accepted
// modification.
type GameVersion struct {
	Version   int         `json:"version"`
	Code      string      `json:"code"`
	Summary   string      `json:"summary"`
	Diff      *DiffReport `json:"diff,omitempty"`
	CodeSize  int         `json:"code_size"`
	CreatedAt time.Time   `json:"created_at"`
}

// GameState is the current state of a session's game. Mutated only by
// accepted modifications; prior versions remain retrievable for rollback.
type GameState struct {
	GameID     string    `json:"game_id"`
	Version    int       `json:"version"`
	Code       string    `json:"code"`
	Type       GameType  `json:"type"`
	Engine     Engine    `json:"engine"`
	Features   []string  `json:"features"`
	TemplateID string    `json:"template_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary returns a short human-readable description used in prompts.
func (g *GameState) Summary() string {
	if g == nil {
		return "no active game"
	}
	return fmt.Sprintf("%s (%s) v%d", g.Type, g.Engine, g.Version)
}
