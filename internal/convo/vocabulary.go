// Package convo classifies chat messages into modification intents and
// extracts game entities (colors, features, objects, actions, numbers).
package convo

import (
	"github.com/playforge/playforge/internal/domain"
)

// Vocabulary is the immutable keyword configuration driving detection.
// Tests substitute their own tables; production uses DefaultVocabulary.
type Vocabulary struct {
	// Triggers maps each intent to its trigger phrases. Single words match
	// on word boundaries, multi-word phrases as substrings.
	Triggers map[domain.Intent][]string

	// ColorFamilies maps a canonical color name to its synonyms.
	ColorFamilies map[string][]string

	Features []string
	Objects  []string
	Actions  []string

	// Saturation is the match count that yields confidence 1.0.
	Saturation int
	// ContextBoost is added to an intent's score when a recent assistant
	// turn discussed the same category. Capped at 1.0 after boosting.
	ContextBoost float64
	// ContextTurns is how many trailing assistant messages are examined.
	ContextTurns int
}

// DefaultVocabulary returns the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Triggers: map[domain.Intent][]string{
			domain.IntentCreateGame: {
				"create", "make", "generate", "build", "new game", "start", "begin",
			},
			domain.IntentModifyVisual: {
				"color", "size", "appearance", "look", "visual", "style",
				"bigger", "smaller", "red", "blue", "green", "yellow",
				"purple", "orange", "pink", "black", "white",
			},
			domain.IntentModifyGameplay: {
				"speed", "difficulty", "controls", "physics", "mechanics",
				"faster", "slower", "easier", "harder", "jump", "movement", "gravity",
			},
			domain.IntentAddFeature: {
				"add", "include", "implement", "feature", "more", "extra",
				"also", "coins", "powerups", "enemies", "levels", "sound", "music",
			},
			domain.IntentFixBug: {
				"fix", "broken", "error", "not working", "issue", "problem",
				"bug", "wrong", "doesn't work", "glitch",
			},
			domain.IntentAskQuestion: {
				"how", "what", "why", "when", "where", "explain", "tell me", "can you",
			},
			domain.IntentRequestHelp: {
				"help", "assistance", "guide", "tutorial", "stuck", "confused", "don't know",
			},
		},
		ColorFamilies: map[string][]string{
			"red":    {"red", "crimson", "scarlet"},
			"blue":   {"blue", "azure", "navy"},
			"green":  {"green", "lime", "emerald"},
			"yellow": {"yellow", "gold", "amber"},
			"purple": {"purple", "violet", "magenta"},
			"orange": {"orange", "tangerine"},
			"pink":   {"pink", "rose"},
			"black":  {"black"},
			"white":  {"white"},
			"brown":  {"brown", "tan"},
		},
		Features: []string{
			"coins", "powerups", "enemies", "platforms", "levels", "sound",
			"music", "particles", "effects", "scoring", "timer", "health",
			"lives", "weapons",
		},
		Objects: []string{
			"player", "character", "ship", "car", "ball", "block", "wall",
			"door", "flag", "star", "gem", "key", "bomb", "rocket", "laser",
		},
		Actions: []string{
			"jump", "shoot", "move", "run", "fly", "collect", "destroy",
			"build", "push", "pull", "rotate", "scale", "animate",
		},
		Saturation:   3,
		ContextBoost: 0.15,
		ContextTurns: 5,
	}
}

// RebuildTriggers are phrases that force a full rebuild regardless of the
// detected intent. Used by the planner.
var RebuildTriggers = []string{
	"three.js", "redesign", "rebuild", "from scratch", "start over", "3d game",
}
