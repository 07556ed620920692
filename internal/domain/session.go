package domain

import (
	"time"
)

// Session holds one user's conversation and game version history.
// Messages and versions are append-only; Game points at the current version.
type Session struct {
	ID           string                `json:"id"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActivity time.Time             `json:"last_activity"`
	ExpiresAt    time.Time             `json:"expires_at"`
	Messages     []ConversationMessage `json:"messages"`
	Game         *GameState            `json:"game,omitempty"`
	Versions     []GameVersion         `json:"versions,omitempty"`
	Preferences  map[string]string     `json:"preferences,omitempty"`
}

// Expired reports whether the session has passed its expiry time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RecentMessages returns the last n messages in chronological order.
func (s *Session) RecentMessages(n int) []ConversationMessage {
	if n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// VersionByNumber returns the stored snapshot for a version number, or nil.
func (s *Session) VersionByNumber(version int) *GameVersion {
	for i := range s.Versions {
		if s.Versions[i].Version == version {
			return &s.Versions[i]
		}
	}
	return nil
}

// HasGame reports whether the session has an active game.
func (s *Session) HasGame() bool {
	return s.Game != nil && s.Game.Code != ""
}
