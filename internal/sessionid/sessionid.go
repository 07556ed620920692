// Package sessionid extracts the client's session id from requests and
// makes it available on the request context.
package sessionid

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	// HeaderName is the preferred way for clients to pass their session id.
	HeaderName = "X-Playforge-Session-ID"
	// CookieName is the fallback for browser clients.
	CookieName = "playforge_session"
)

type contextKey int

const sessionIDKey contextKey = iota

// Session ids are issued by the store as "session_" + uuid; anything else
// is rejected here rather than deep in a handler.
var sessionIDPattern = regexp.MustCompile(`^session_[A-Za-z0-9-]{1,64}$`)

// FromContext extracts the session id from the request context. Empty when
// the request carried none.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// FromRequest extracts and sanitizes the session id from a request:
// header first, then cookie, then the session_id query parameter
// (WebSocket clients cannot set headers).
func FromRequest(r *http.Request) string {
	sid := r.Header.Get(HeaderName)
	if sid == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			sid = c.Value
		}
	}
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitize(sid)
}

func sanitize(id string) string {
	id = strings.TrimSpace(id)
	if !sessionIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// Middleware injects the request's session id into the context. It does
// not require one; handlers that need a session enforce that themselves.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), sessionIDKey, FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
