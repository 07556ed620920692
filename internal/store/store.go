// Package store provides session and game version persistence.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/playforge/playforge/internal/domain"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrVersionNotFound is returned when a rollback target does not exist.
	ErrVersionNotFound = errors.New("version not found")
	// ErrVersionConflict is returned when an appended version does not
	// follow the current one. Accepted modifications advance the version
	// by exactly one; anything else indicates a lost-update race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrModificationInFlight is returned when another modification for
	// the same session holds the lock.
	ErrModificationInFlight = errors.New("modification already in flight")
)

// Repository persists sessions, conversations and game versions.
//
// GetSession extends the session's expiry on access. AppendVersion must
// reject any version number other than current+1 so that concurrent
// modifications cannot silently overwrite each other's lineage.
type Repository interface {
	// CreateSession creates a session with the given TTL and preferences.
	CreateSession(ctx context.Context, ttl time.Duration, prefs map[string]string) (*domain.Session, error)

	// GetSession retrieves a session, extending its expiry. Returns
	// ErrSessionNotFound for unknown or expired ids.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// AppendMessage appends a conversation message.
	AppendMessage(ctx context.Context, id string, msg domain.ConversationMessage) error

	// CurrentGameState returns the session's active game, or nil when the
	// session has no game yet.
	CurrentGameState(ctx context.Context, id string) (*domain.GameState, error)

	// AppendVersion installs game as the session's current state and
	// records version as a new immutable snapshot. version.Version must be
	// exactly one past the stored current version (or 1 for the first).
	AppendVersion(ctx context.Context, id string, game *domain.GameState, version domain.GameVersion) (int, error)

	// Versions returns all stored version snapshots in ascending order.
	Versions(ctx context.Context, id string) ([]domain.GameVersion, error)

	// Rollback appends a new version whose code is copied from
	// targetVersion. Version numbers keep increasing; history is never
	// rewritten.
	Rollback(ctx context.Context, id string, targetVersion int) (*domain.GameState, error)

	// ResetConversation clears the session's message history, leaving the
	// game and its versions intact.
	ResetConversation(ctx context.Context, id string) error

	// DeleteSession removes a session and all its state.
	DeleteSession(ctx context.Context, id string) error

	// LockModification serializes modifications per session. The returned
	// release func must be called; ErrModificationInFlight is returned
	// when the lock is held.
	LockModification(ctx context.Context, id string) (release func(), err error)

	// CleanupExpired removes expired sessions and reports how many.
	CleanupExpired(ctx context.Context) (int64, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
