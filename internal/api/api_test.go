package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/playforge/internal/engine"
	"github.com/playforge/playforge/internal/gametpl"
	"github.com/playforge/playforge/internal/sessionid"
	"github.com/playforge/playforge/internal/store"
)

// scriptClient replays canned provider responses.
type scriptClient struct {
	responses []string
}

func (c *scriptClient) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	out := c.responses[0]
	c.responses = c.responses[1:]
	return out, nil
}

const testGameDoc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Test Game</title>
</head>
<body>
<canvas id="game"></canvas>
<script>
const ctx = document.getElementById('game').getContext('2d');
function loop() { requestAnimationFrame(loop); }
loop();
</script>
</body>
</html>`

func testResponse(explanation string) string {
	return "```html\n" + testGameDoc + "\n```\n" + explanation
}

// newTestRouter wires the full API surface over a memory store and a
// scripted provider, mirroring the production router.
func newTestRouter(t *testing.T, responses []string) chi.Router {
	t.Helper()

	repo := store.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = repo.Close() })

	templates, err := gametpl.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	eng := engine.New(repo, &scriptClient{responses: responses}, templates, nil, nil, engine.Options{})

	base := NewHandler(repo, eng, "http://localhost:3000")
	r := chi.NewRouter()
	r.Use(sessionid.Middleware)
	NewHealthHandler(repo).RegisterHealth(r)
	NewSessionHandler(base, time.Hour).RegisterRoutes(r)
	NewChatHandler(base).RegisterRoutes(r)
	NewGameHandler(base).RegisterRoutes(r)
	NewTemplateHandler(templates).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionid.HeaderName, sessionID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func createSession(t *testing.T, r chi.Router) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/sessions", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d: %s", w.Code, w.Body.String())
	}
	id, _ := decodeBody(t, w)["session_id"].(string)
	if id == "" {
		t.Fatal("session create returned no id")
	}
	return id
}

func TestSessionCreate(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodPost, "/api/sessions", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	id, _ := body["session_id"].(string)
	if !strings.HasPrefix(id, "session_") {
		t.Fatalf("session_id = %q", id)
	}
	if body["has_game"] != false {
		t.Error("new session must not have a game")
	}

	cookie := w.Result().Cookies()
	found := false
	for _, c := range cookie {
		if c.Name == sessionid.CookieName && c.Value == id {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie must be http-only")
			}
		}
	}
	if !found {
		t.Error("session cookie not set")
	}
}

func TestSessionCurrentRequiresID(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodGet, "/api/sessions/current", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestSessionCurrentUnknownID(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodGet, "/api/sessions/current", "session_nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/sessions/current", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("current status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodDelete, "/api/sessions/current", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/sessions/current", id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", w.Code)
	}
}

func TestChatMessageCreatesGame(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, []string{testResponse("Done!")})
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/chat/message", id,
		map[string]string{"message": "make a platformer game with coins"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["reply"] != "Done!" {
		t.Errorf("reply = %v", body["reply"])
	}
	game, _ := body["game"].(map[string]interface{})
	if game == nil || game["version"] != float64(1) {
		t.Fatalf("game = %v, want version 1", body["game"])
	}

	// The game endpoints now serve the new version.
	w = doJSON(t, r, http.MethodGet, "/api/games/current", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("games/current status = %d: %s", w.Code, w.Body.String())
	}
	info := decodeBody(t, w)
	if info["version"] != float64(1) || info["type"] != "platformer" {
		t.Errorf("game info = %v", info)
	}
	if _, leaked := info["code"]; leaked {
		t.Error("game info must omit the code body")
	}

	w = doJSON(t, r, http.MethodGet, "/api/games/current/code", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("code content-type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("code endpoint did not serve the document")
	}
}

func TestChatMessageValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/chat/message", id, map[string]string{"message": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty message status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/chat/message", id, map[string]string{"message": "go"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short prompt status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/chat/message", "", map[string]string{"message": "make a platformer game"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no session status = %d, want 401", w.Code)
	}
}

func TestChatHistoryAndReset(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, []string{testResponse("Done!")})
	id := createSession(t, r)

	if w := doJSON(t, r, http.MethodPost, "/api/chat/message", id,
		map[string]string{"message": "make a platformer game with coins"}); w.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/chat/history", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	msgs, _ := decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("history has %d messages, want 2", len(msgs))
	}

	if w := doJSON(t, r, http.MethodPost, "/api/chat/reset", id, nil); w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/chat/history", id, nil)
	msgs, _ = decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 0 {
		t.Fatalf("history survived reset: %v", msgs)
	}

	// The game survives a conversation reset.
	if w := doJSON(t, r, http.MethodGet, "/api/games/current", id, nil); w.Code != http.StatusOK {
		t.Fatalf("games/current after reset = %d", w.Code)
	}
}

func TestChatSuggestions(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/chat/suggestions", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list, _ := decodeBody(t, w)["suggestions"].([]interface{})
	if len(list) == 0 {
		t.Fatal("no suggestions returned")
	}
}

func TestGameCurrentBeforeCreation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/games/current", id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any game exists", w.Code)
	}
}

func TestGameVersionsAndRollback(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, []string{testResponse("Done!")})
	id := createSession(t, r)

	if w := doJSON(t, r, http.MethodPost, "/api/chat/message", id,
		map[string]string{"message": "make a platformer game with coins"}); w.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/games/versions", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("versions status = %d", w.Code)
	}
	versions, _ := decodeBody(t, w)["versions"].([]interface{})
	if len(versions) != 1 {
		t.Fatalf("versions = %v, want one entry", versions)
	}

	w = doJSON(t, r, http.MethodPost, "/api/games/rollback", id, map[string]int{"version": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("rollback to 0 status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/games/rollback", id, map[string]int{"version": 7})
	if w.Code != http.StatusNotFound {
		t.Fatalf("rollback to unknown status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/games/rollback", id, map[string]int{"version": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("rollback status = %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["version"]; got != float64(2) {
		t.Fatalf("rollback version = %v, want a new version 2", got)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodGet, "/api/templates/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list, _ := decodeBody(t, w)["templates"].([]interface{})
	if len(list) != 3 {
		t.Fatalf("templates = %d, want 3", len(list))
	}

	w = doJSON(t, r, http.MethodGet, "/api/templates/default_platformer", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/templates/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown template status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/templates/default_platformer/preview", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("preview content-type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("preview did not render a document")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
}
