// Package domain contains core domain types for the Playforge backend.
package domain

import (
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentCreateGame     Intent = "create_game"
	IntentModifyVisual   Intent = "modify_visual"
	IntentModifyGameplay Intent = "modify_gameplay"
	IntentAddFeature     Intent = "add_feature"
	IntentFixBug         Intent = "fix_bug"
	IntentAskQuestion    Intent = "ask_question"
	IntentRequestHelp    Intent = "request_help"
)

// Intents lists all recognized intents in tie-break priority order:
// when two intents score equally, the earlier one wins.
var Intents = []Intent{
	IntentFixBug,
	IntentModifyGameplay,
	IntentModifyVisual,
	IntentAddFeature,
	IntentAskQuestion,
	IntentRequestHelp,
	IntentCreateGame,
}

// IntentResult holds per-intent confidence scores and the selected intent.
type IntentResult struct {
	Intent     Intent             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Scores     map[Intent]float64 `json:"scores,omitempty"`
}

// NumberMatch is a numeric token extracted from a message.
type NumberMatch struct {
	Value  int    `json:"value"`
	Unit   string `json:"unit,omitempty"`
	Offset int    `json:"offset"`
}

// ElementSet groups entities extracted from a message by category.
type ElementSet struct {
	Colors   []string      `json:"colors,omitempty"`
	Features []string      `json:"features,omitempty"`
	Objects  []string      `json:"objects,omitempty"`
	Actions  []string      `json:"actions,omitempty"`
	Numbers  []NumberMatch `json:"numbers,omitempty"`
}

// IsEmpty reports whether no entities were extracted.
func (e ElementSet) IsEmpty() bool {
	return len(e.Colors) == 0 && len(e.Features) == 0 &&
		len(e.Objects) == 0 && len(e.Actions) == 0 && len(e.Numbers) == 0
}

// OnlyColors reports whether colors are the only extracted entities.
func (e ElementSet) OnlyColors() bool {
	return len(e.Colors) > 0 && len(e.Features) == 0 &&
		len(e.Objects) == 0 && len(e.Actions) == 0
}

// ConversationMessage is one immutable turn in a session's conversation.
type ConversationMessage struct {
	ID          string        `json:"id"`
	Role        Role          `json:"role"`
	Text        string        `json:"text"`
	Timestamp   time.Time     `json:"timestamp"`
	Intent      *IntentResult `json:"intent,omitempty"`
	Elements    *ElementSet   `json:"elements,omitempty"`
	GameVersion int           `json:"game_version,omitempty"`
}
