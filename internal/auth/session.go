package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	cleanupInterval = 10 * time.Minute
)

// ErrNoSession means the token is unusable: bad signature, expired, or
// its session was destroyed.
var ErrNoSession = errors.New("auth: no active session")

// Session is the server-side record binding a cookie to a user.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager issues and tracks login sessions.
//
// Records live in an in-process go-cache with the same TTL as the token,
// so they disappear on restart and every user has to log in again.
type SessionManager struct {
	tokens *TokenService
	store  *cache.Cache
	ttl    time.Duration
}

func NewSessionManager(tokens *TokenService, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		tokens: tokens,
		store:  cache.New(ttl, cleanupInterval),
		ttl:    ttl,
	}
}

// TTL is how long a new session lasts. Cookies use it as MaxAge.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for userID and returns its signed token.
func (m *SessionManager) Create(userID int64) (string, *Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        xid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.tokens.Generate(userID, sess.ID, m.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("auth: creating session for user %d: %w", userID, err)
	}

	m.store.Set(sess.ID, sess, m.ttl)
	return token, sess, nil
}

// Resolve returns the live session a token refers to.
func (m *SessionManager) Resolve(token string) (*Session, error) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	v, ok := m.store.Get(claims.SessionID)
	if !ok {
		return nil, ErrNoSession
	}
	sess := v.(*Session)
	if sess.UserID != claims.UserID {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Destroy ends the session a token refers to. Unknown or invalid tokens
// are ignored: there is nothing left to destroy.
func (m *SessionManager) Destroy(token string) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return
	}
	m.store.Delete(claims.SessionID)
}

// ResolveFunc adapts Resolve for LoadSession.
func (m *SessionManager) ResolveFunc() ResolveFunc {
	return func(_ context.Context, token string) (*Session, error) {
		return m.Resolve(token)
	}
}
