package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/playforge/playforge/internal/domain"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreate(t *testing.T, s *MemoryStore) *domain.Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return sess
}

func firstVersion(code string) domain.GameVersion {
	return domain.GameVersion{
		Version:   1,
		Code:      code,
		Summary:   "Created a new platformer game",
		CodeSize:  len(code),
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetSession(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	if !strings.HasPrefix(sess.ID, "session_") {
		t.Fatalf("session id %q missing prefix", sess.ID)
	}

	got, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("got session %q, want %q", got.ID, sess.ID)
	}
	if !got.ExpiresAt.After(time.Now()) {
		t.Fatal("expiry not in the future")
	}
}

func TestGetSessionUnknown(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.GetSession(context.Background(), "session_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSessionExtendsExpiry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	first, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("expiry did not advance: %v then %v", first.ExpiresAt, second.ExpiresAt)
	}
}

func TestExpiredSessionIsGone(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess, err := s.CreateSession(context.Background(), time.Millisecond, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.GetSession(context.Background(), sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for expired session", err)
	}
}

func TestAppendMessage(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	msg := domain.ConversationMessage{
		ID:        "msg_1",
		Role:      domain.RoleUser,
		Text:      "make a platformer",
		Timestamp: time.Now().UTC(),
	}
	if err := s.AppendMessage(context.Background(), sess.ID, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Text != msg.Text {
		t.Fatalf("messages = %+v, want the appended message", got.Messages)
	}
}

func TestAppendVersionMonotonic(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	game := &domain.GameState{
		GameID: "game_1",
		Code:   "<!DOCTYPE html><html></html>",
		Type:   domain.GameTypePlatformer,
		Engine: domain.EngineCanvas,
	}
	n, err := s.AppendVersion(context.Background(), sess.ID, game, firstVersion(game.Code))
	if err != nil {
		t.Fatalf("AppendVersion failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("version = %d, want 1", n)
	}

	// Skipping a number must be rejected and must not consume one.
	v3 := firstVersion(game.Code)
	v3.Version = 3
	if _, err := s.AppendVersion(context.Background(), sess.ID, game, v3); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	v2 := firstVersion("<!DOCTYPE html><html><body>v2</body></html>")
	v2.Version = 2
	n, err = s.AppendVersion(context.Background(), sess.ID, game, v2)
	if err != nil {
		t.Fatalf("AppendVersion after rejected append failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("version = %d, want 2 (rejected appends must not consume numbers)", n)
	}

	versions, err := s.Versions(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("kept %d versions, want 2", len(versions))
	}
}

func TestRollbackAppendsNewVersion(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	game := &domain.GameState{GameID: "game_1", Code: "v1 code", Type: domain.GameTypePlatformer, Engine: domain.EngineCanvas}
	if _, err := s.AppendVersion(context.Background(), sess.ID, game, firstVersion("v1 code")); err != nil {
		t.Fatalf("AppendVersion failed: %v", err)
	}
	game.Version = 1
	game.Code = "v2 code"
	v2 := firstVersion("v2 code")
	v2.Version = 2
	if _, err := s.AppendVersion(context.Background(), sess.ID, game, v2); err != nil {
		t.Fatalf("AppendVersion failed: %v", err)
	}

	got, err := s.Rollback(context.Background(), sess.ID, 1)
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if got.Version != 3 {
		t.Fatalf("rollback produced version %d, want a new version 3", got.Version)
	}
	if got.Code != "v1 code" {
		t.Fatalf("rollback code = %q, want the target snapshot", got.Code)
	}

	versions, err := s.Versions(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("kept %d versions, want 3 (rollback appends, never truncates)", len(versions))
	}
	if versions[2].Summary != "Rolled back to version 1" {
		t.Fatalf("summary = %q", versions[2].Summary)
	}
}

func TestRollbackUnknownVersion(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	if _, err := s.Rollback(context.Background(), sess.ID, 7); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("err = %v, want ErrVersionNotFound", err)
	}
}

func TestResetConversationKeepsGame(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	game := &domain.GameState{GameID: "game_1", Code: "v1", Type: domain.GameTypePuzzle, Engine: domain.EngineCanvas}
	if _, err := s.AppendVersion(context.Background(), sess.ID, game, firstVersion("v1")); err != nil {
		t.Fatalf("AppendVersion failed: %v", err)
	}
	if err := s.AppendMessage(context.Background(), sess.ID, domain.ConversationMessage{ID: "msg_1", Role: domain.RoleUser, Text: "hi"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := s.ResetConversation(context.Background(), sess.ID); err != nil {
		t.Fatalf("ResetConversation failed: %v", err)
	}

	got, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got.Messages) != 0 {
		t.Fatalf("messages survived reset: %+v", got.Messages)
	}
	if got.Game == nil || got.Game.Version != 1 {
		t.Fatal("game state must survive a conversation reset")
	}
	if len(got.Versions) != 1 {
		t.Fatal("version history must survive a conversation reset")
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	if err := s.DeleteSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(context.Background(), sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound after delete", err)
	}
}

func TestLockModification(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	release, err := s.LockModification(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("LockModification failed: %v", err)
	}
	if _, err := s.LockModification(context.Background(), sess.ID); !errors.Is(err, ErrModificationInFlight) {
		t.Fatalf("err = %v, want ErrModificationInFlight while held", err)
	}
	release()
	release2, err := s.LockModification(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("LockModification after release failed: %v", err)
	}
	release2()
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.CreateSession(context.Background(), time.Millisecond, nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	keep := mustCreate(t, s)

	time.Sleep(5 * time.Millisecond)
	removed, err := s.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := s.GetSession(context.Background(), keep.ID); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
}

func TestSessionSnapshotsDoNotAlias(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	sess := mustCreate(t, s)

	if err := s.AppendMessage(context.Background(), sess.ID, domain.ConversationMessage{ID: "msg_1", Role: domain.RoleUser, Text: "original"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	got.Messages[0].Text = "mutated"

	again, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if again.Messages[0].Text != "original" {
		t.Fatal("caller mutation leaked into the store")
	}
}
