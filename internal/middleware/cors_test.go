package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsProbe(t *testing.T, allowed []string, origin, method string) *httptest.ResponseRecorder {
	t.Helper()

	handler := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/chat/message", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSWildcard(t *testing.T) {
	t.Parallel()

	w := corsProbe(t, []string{"*"}, "https://app.example.com", http.MethodGet)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Error("wildcard matches must not allow credentials")
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, handler must still run", w.Code)
	}
}

func TestCORSExplicitOrigin(t *testing.T) {
	t.Parallel()

	w := corsProbe(t, []string{"https://app.example.com"}, "https://app.example.com", http.MethodGet)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Error("explicit origin must allow credentials")
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Playforge-Session-ID" {
		t.Errorf("allow-headers = %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	t.Parallel()

	w := corsProbe(t, []string{"https://app.example.com"}, "https://evil.example.com", http.MethodGet)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q for a disallowed origin", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	w := corsProbe(t, []string{"*"}, "https://app.example.com", http.MethodOptions)
	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", w.Code)
	}
}
