// Package prompt assembles the instruction strings sent to the AI provider.
package prompt

import (
	"github.com/playforge/playforge/internal/domain"
)

// HistoryWindow bounds how many prior messages enter a prompt. Older
// context is assumed stale for modification purposes.
const HistoryWindow = 10

// Context is the bounded read-only view of a session handed to the composer.
type Context struct {
	Messages    []domain.ConversationMessage
	Game        *domain.GameState
	Preferences map[string]string
}

// BuildContext extracts the prompt context from a session: the last
// min(10, available) messages in chronological order plus the current game
// summary and preferences. Read-only over the session.
func BuildContext(s *domain.Session) Context {
	ctx := Context{
		Messages:    s.RecentMessages(HistoryWindow),
		Game:        s.Game,
		Preferences: s.Preferences,
	}
	return ctx
}
