package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// contextKey is unexported so no other package can read or overwrite the
// session stored on a request context.
type contextKey string

const sessionKey contextKey = "session"

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "sendlinks_session"

// ResolveFunc maps a session cookie value to its live session. Any error
// makes the request anonymous.
//
// SessionManager.ResolveFunc only checks the token and the registry; the
// server plugs in service.AuthService.ResolveSession, which also checks
// that the account still exists.
type ResolveFunc func(ctx context.Context, token string) (*Session, error)

// LoadSession resolves the session cookie, if any, and stores the session
// on the request context. It never rejects a request: an absent or dead
// session simply leaves the request anonymous. A dead cookie is cleared.
func LoadSession(resolve ResolveFunc, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := resolve(r.Context(), cookie.Value)
			if err != nil {
				ClearSessionCookie(w, cookieName, r.TLS != nil)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth sends anonymous visitors to loginPath with a next parameter
// pointing back at the page they asked for. It must run after LoadSession.
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SessionFromContext(r.Context()); !ok {
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the request's session, if it has one.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// UserIDFromContext returns the logged-in user's id, or (0, false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}

// SetSessionCookie stores token in an HttpOnly, SameSite=Lax cookie.
func SetSessionCookie(w http.ResponseWriter, name, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
