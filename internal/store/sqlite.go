package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/playforge/playforge/internal/domain"
)

// SQLiteStore implements Repository using SQLite. Sessions live as JSON
// blob columns; version snapshots get their own table so rollback does not
// load the whole history blob.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration

	locks sync.Map // session id -> *sync.Mutex
}

// NewSQLite creates a SQLite-backed repository.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &SQLiteStore{db: db, ttl: ttl}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		preferences_json TEXT,
		game_json TEXT,
		messages_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS versions (
		session_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, version)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateSession implements Repository.
func (s *SQLiteStore) CreateSession(ctx context.Context, ttl time.Duration, prefs map[string]string) (*domain.Session, error) {
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

	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, last_activity, expires_at, preferences_json, messages_json)
		VALUES (?, ?, ?, ?, ?, '[]')`,
		sess.ID, now.Unix(), now.Unix(), sess.ExpiresAt.Unix(), string(prefsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession implements Repository.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(s.ttl)
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ?, expires_at = ? WHERE id = ?`,
		now.Unix(), sess.ExpiresAt.Unix(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}

	versions, err := s.Versions(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Versions = versions
	return sess, nil
}

func (s *SQLiteStore) loadSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, last_activity, expires_at, preferences_json, game_json, messages_json
		FROM sessions WHERE id = ?`, id)

	var (
		sess                          domain.Session
		created, activity, expires    int64
		prefsJSON, gameJSON, msgsJSON sql.NullString
	)
	err := row.Scan(&sess.ID, &created, &activity, &expires, &prefsJSON, &gameJSON, &msgsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.CreatedAt = time.Unix(created, 0).UTC()
	sess.LastActivity = time.Unix(activity, 0).UTC()
	sess.ExpiresAt = time.Unix(expires, 0).UTC()

	if sess.Expired(time.Now().UTC()) {
		_ = s.DeleteSession(ctx, id)
		return nil, ErrSessionNotFound
	}

	if prefsJSON.Valid && prefsJSON.String != "" {
		if err := json.Unmarshal([]byte(prefsJSON.String), &sess.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	if gameJSON.Valid && gameJSON.String != "" {
		sess.Game = &domain.GameState{}
		if err := json.Unmarshal([]byte(gameJSON.String), sess.Game); err != nil {
			return nil, fmt.Errorf("decode game state: %w", err)
		}
	}
	if msgsJSON.Valid && msgsJSON.String != "" {
		if err := json.Unmarshal([]byte(msgsJSON.String), &sess.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return &sess, nil
}

// AppendMessage implements Repository.
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg domain.ConversationMessage) error {
	sess, err := s.loadSession(ctx, id)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, msg)
	return s.storeMessages(ctx, id, sess.Messages)
}

func (s *SQLiteStore) storeMessages(ctx context.Context, id string, msgs []domain.ConversationMessage) error {
	blob, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET messages_json = ?, last_activity = ? WHERE id = ?`,
		string(blob), time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("store messages: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CurrentGameState implements Repository.
func (s *SQLiteStore) CurrentGameState(ctx context.Context, id string) (*domain.GameState, error) {
	sess, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Game, nil
}

// AppendVersion implements Repository. Retried on SQLITE_BUSY because the
// sweeper may hold the write lock while a modification lands.
func (s *SQLiteStore) AppendVersion(ctx context.Context, id string, game *domain.GameState, version domain.GameVersion) (int, error) {
	var n int
	err := withBusyRetry(func() error {
		var err error
		n, err = s.appendVersionTx(ctx, id, game, version)
		return err
	})
	return n, err
}

func (s *SQLiteStore) appendVersionTx(ctx context.Context, id string, game *domain.GameState, version domain.GameVersion) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin version transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var gameJSON sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT game_json FROM sessions WHERE id = ?`, id).Scan(&gameJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read current game: %w", err)
	}

	current := 0
	if gameJSON.Valid && gameJSON.String != "" {
		var g domain.GameState
		if err := json.Unmarshal([]byte(gameJSON.String), &g); err != nil {
			return 0, fmt.Errorf("decode game state: %w", err)
		}
		current = g.Version
	}
	if version.Version != current+1 {
		return 0, ErrVersionConflict
	}

	now := time.Now().UTC()
	g := *game
	g.Version = version.Version
	g.UpdatedAt = now

	newGameJSON, err := json.Marshal(&g)
	if err != nil {
		return 0, fmt.Errorf("marshal game state: %w", err)
	}
	snapJSON, err := json.Marshal(version)
	if err != nil {
		return 0, fmt.Errorf("marshal version snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET game_json = ?, last_activity = ? WHERE id = ?`,
		string(newGameJSON), now.Unix(), id,
	); err != nil {
		return 0, fmt.Errorf("store game state: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO versions (session_id, version, snapshot_json, created_at) VALUES (?, ?, ?, ?)`,
		id, version.Version, string(snapJSON), now.Unix(),
	); err != nil {
		return 0, fmt.Errorf("store version snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit version: %w", err)
	}
	return version.Version, nil
}

// Versions implements Repository.
func (s *SQLiteStore) Versions(ctx context.Context, id string) ([]domain.GameVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot_json FROM versions WHERE session_id = ? ORDER BY version ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []domain.GameVersion
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		var v domain.GameVersion
		if err := json.Unmarshal([]byte(blob), &v); err != nil {
			return nil, fmt.Errorf("decode version snapshot: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Rollback implements Repository.
func (s *SQLiteStore) Rollback(ctx context.Context, id string, targetVersion int) (*domain.GameState, error) {
	game, err := s.CurrentGameState(ctx, id)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrVersionNotFound
	}

	var snapJSON string
	err = s.db.QueryRowContext(ctx,
		`SELECT snapshot_json FROM versions WHERE session_id = ? AND version = ?`,
		id, targetVersion,
	).Scan(&snapJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read rollback target: %w", err)
	}
	var target domain.GameVersion
	if err := json.Unmarshal([]byte(snapJSON), &target); err != nil {
		return nil, fmt.Errorf("decode rollback target: %w", err)
	}

	next := domain.GameVersion{
		Version:   game.Version + 1,
		Code:      target.Code,
		Summary:   rollbackSummary(targetVersion),
		CodeSize:  len(target.Code),
		CreatedAt: time.Now().UTC(),
	}
	g := *game
	g.Code = target.Code
	if _, err := s.AppendVersion(ctx, id, &g, next); err != nil {
		return nil, err
	}
	g.Version = next.Version
	return &g, nil
}

// ResetConversation implements Repository.
func (s *SQLiteStore) ResetConversation(ctx context.Context, id string) error {
	return s.storeMessages(ctx, id, nil)
}

// DeleteSession implements Repository.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM versions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.locks.Delete(id)
	return nil
}

// LockModification implements Repository. SQLite serves a single process,
// so an in-process lock is sufficient.
func (s *SQLiteStore) LockModification(ctx context.Context, id string) (func(), error) {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrModificationInFlight
	}
	return mu.Unlock, nil
}

// CleanupExpired implements Repository.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Unix()
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM versions WHERE session_id IN
			(SELECT id FROM sessions WHERE expires_at < ?)`, now); err != nil {
		return 0, fmt.Errorf("cleanup expired versions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Ping implements Repository.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Repository.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
