package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/domain"
)

// MemoryStore implements Repository with an in-process map. Used in tests
// and as the fallback when neither SQLite nor Redis is configured.
//
// Sessions are stored as value snapshots and copied on the way in and out,
// so callers holding a *domain.Session never alias store-internal state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ttl      time.Duration

	locks sync.Map // session id -> *sync.Mutex
}

// NewMemoryStore creates an in-memory repository with the given default TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		ttl:      ttl,
	}
}

// CreateSession implements Repository.
func (s *MemoryStore) CreateSession(ctx context.Context, ttl time.Duration, prefs map[string]string) (*domain.Session, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:           "session_" + uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
		Preferences:  prefs,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = copySession(sess)
	s.mu.Unlock()

	return sess, nil
}

// GetSession implements Repository.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	now := time.Now().UTC()
	if !ok || sess.Expired(now) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}

	// Access extends the session.
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(s.ttl)

	return copySession(sess), nil
}

// AppendMessage implements Repository.
func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg domain.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastActivity = time.Now().UTC()
	return nil
}

// CurrentGameState implements Repository.
func (s *MemoryStore) CurrentGameState(ctx context.Context, id string) (*domain.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Game == nil {
		return nil, nil
	}
	game := *sess.Game
	return &game, nil
}

// AppendVersion implements Repository.
func (s *MemoryStore) AppendVersion(ctx context.Context, id string, game *domain.GameState, version domain.GameVersion) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}

	current := 0
	if sess.Game != nil {
		current = sess.Game.Version
	}
	if version.Version != current+1 {
		return 0, ErrVersionConflict
	}

	g := *game
	g.Version = version.Version
	g.UpdatedAt = time.Now().UTC()
	sess.Game = &g
	sess.Versions = append(sess.Versions, version)
	sess.LastActivity = g.UpdatedAt

	return version.Version, nil
}

// Versions implements Repository.
func (s *MemoryStore) Versions(ctx context.Context, id string) ([]domain.GameVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]domain.GameVersion, len(sess.Versions))
	copy(out, sess.Versions)
	return out, nil
}

// Rollback implements Repository.
func (s *MemoryStore) Rollback(ctx context.Context, id string, targetVersion int) (*domain.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	target := sess.VersionByNumber(targetVersion)
	if target == nil || sess.Game == nil {
		return nil, ErrVersionNotFound
	}

	next := domain.GameVersion{
		Version:   sess.Game.Version + 1,
		Code:      target.Code,
		Summary:   rollbackSummary(targetVersion),
		CodeSize:  len(target.Code),
		CreatedAt: time.Now().UTC(),
	}
	g := *sess.Game
	g.Version = next.Version
	g.Code = target.Code
	g.UpdatedAt = next.CreatedAt
	sess.Game = &g
	sess.Versions = append(sess.Versions, next)

	out := g
	return &out, nil
}

// ResetConversation implements Repository.
func (s *MemoryStore) ResetConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Messages = nil
	sess.LastActivity = time.Now().UTC()
	return nil
}

// DeleteSession implements Repository.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.locks.Delete(id)
	return nil
}

// LockModification implements Repository.
func (s *MemoryStore) LockModification(ctx context.Context, id string) (func(), error) {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrModificationInFlight
	}
	return mu.Unlock, nil
}

// CleanupExpired implements Repository.
func (s *MemoryStore) CleanupExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var removed int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Ping implements Repository.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Repository.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.sessions = nil
	s.mu.Unlock()
	return nil
}

func copySession(sess *domain.Session) *domain.Session {
	out := *sess
	out.Messages = make([]domain.ConversationMessage, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	out.Versions = make([]domain.GameVersion, len(sess.Versions))
	copy(out.Versions, sess.Versions)
	if sess.Game != nil {
		g := *sess.Game
		out.Game = &g
	}
	if sess.Preferences != nil {
		out.Preferences = make(map[string]string, len(sess.Preferences))
		for k, v := range sess.Preferences {
			out.Preferences[k] = v
		}
	}
	return &out
}

func rollbackSummary(target int) string {
	return "Rolled back to version " + strconv.Itoa(target)
}
