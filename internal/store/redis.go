package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/playforge/playforge/internal/domain"
)

const (
	sessionKeyPrefix = "playforge:session:"
	lockKeyPrefix    = "playforge:modlock:"
	// Modifications should never run longer than the provider timeout
	// plus retries; the lock TTL guards against a crashed holder.
	lockTTL = 5 * time.Minute
)

// RedisStore implements Repository on Redis. The whole session, including
// its version history, lives as one JSON blob under a TTL key, so expiry
// is Redis's job and CleanupExpired has nothing to do.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed repository.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func lockKey(id string) string    { return lockKeyPrefix + id }

// CreateSession implements Repository.
func (s *RedisStore) CreateSession(ctx context.Context, ttl time.Duration, prefs map[string]string) (*domain.Session, error) {
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
	if err := s.put(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) put(ctx context.Context, sess *domain.Session, ttl time.Duration) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), blob, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// GetSession implements Repository. Reading refreshes the key TTL, which
// is how access extends the session.
func (s *RedisStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	now := time.Now().UTC()
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(s.ttl)
	if err := s.put(ctx, &sess, s.ttl); err != nil {
		return nil, err
	}
	return &sess, nil
}

// mutate applies fn to the stored session under optimistic locking.
func (s *RedisStore) mutate(ctx context.Context, id string, fn func(*domain.Session) error) error {
	key := sessionKey(id)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}

		var sess domain.Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := fn(&sess); err != nil {
			return err
		}
		sess.LastActivity = time.Now().UTC()
		sess.ExpiresAt = sess.LastActivity.Add(s.ttl)

		blob, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, blob, s.ttl)
			return nil
		})
		return err
	}, key)
}

// AppendMessage implements Repository.
func (s *RedisStore) AppendMessage(ctx context.Context, id string, msg domain.ConversationMessage) error {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		sess.Messages = append(sess.Messages, msg)
		return nil
	})
}

// CurrentGameState implements Repository.
func (s *RedisStore) CurrentGameState(ctx context.Context, id string) (*domain.GameState, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Game, nil
}

// AppendVersion implements Repository.
func (s *RedisStore) AppendVersion(ctx context.Context, id string, game *domain.GameState, version domain.GameVersion) (int, error) {
	err := s.mutate(ctx, id, func(sess *domain.Session) error {
		current := 0
		if sess.Game != nil {
			current = sess.Game.Version
		}
		if version.Version != current+1 {
			return ErrVersionConflict
		}
		g := *game
		g.Version = version.Version
		g.UpdatedAt = time.Now().UTC()
		sess.Game = &g
		sess.Versions = append(sess.Versions, version)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version.Version, nil
}

// Versions implements Repository.
func (s *RedisStore) Versions(ctx context.Context, id string) ([]domain.GameVersion, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Versions, nil
}

// Rollback implements Repository.
func (s *RedisStore) Rollback(ctx context.Context, id string, targetVersion int) (*domain.GameState, error) {
	var out *domain.GameState
	err := s.mutate(ctx, id, func(sess *domain.Session) error {
		target := sess.VersionByNumber(targetVersion)
		if target == nil || sess.Game == nil {
			return ErrVersionNotFound
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

		cp := g
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResetConversation implements Repository.
func (s *RedisStore) ResetConversation(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		sess.Messages = nil
		return nil
	})
}

// DeleteSession implements Repository.
func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id), lockKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// LockModification implements Repository using SET NX with a TTL, so the
// lock works across replicas and cannot outlive a crashed holder.
func (s *RedisStore) LockModification(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	ok, err := s.client.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire modification lock: %w", err)
	}
	if !ok {
		return nil, ErrModificationInFlight
	}
	release := func() {
		// Best effort; TTL cleans up if this fails.
		_ = s.client.Del(context.Background(), key).Err()
	}
	return release, nil
}

// CleanupExpired implements Repository. Redis expires keys on its own.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// Ping implements Repository.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Repository.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
