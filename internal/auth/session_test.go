package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	return NewSessionManager(newTestTokenService(t), time.Hour)
}

func TestSessionManager_CreateResolve(t *testing.T) {
	m := newTestSessionManager(t)

	token, sess, err := m.Create(7)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, int64(7), sess.UserID)

	got, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, int64(7), got.UserID)
}

func TestSessionManager_DestroyEndsSession(t *testing.T) {
	m := newTestSessionManager(t)

	token, _, err := m.Create(7)
	require.NoError(t, err)

	m.Destroy(token)

	_, err = m.Resolve(token)
	assert.ErrorIs(t, err, ErrNoSession, "a destroyed session must not resolve even though the JWT is still valid")
}

func TestSessionManager_DestroyOnlyThatSession(t *testing.T) {
	m := newTestSessionManager(t)

	laptop, _, err := m.Create(7)
	require.NoError(t, err)
	phone, _, err := m.Create(7)
	require.NoError(t, err)

	m.Destroy(laptop)

	_, err = m.Resolve(phone)
	assert.NoError(t, err)
}

func TestSessionManager_DestroyGarbageIsNoop(t *testing.T) {
	m := newTestSessionManager(t)
	token, _, err := m.Create(1)
	require.NoError(t, err)

	m.Destroy("garbage")

	_, err = m.Resolve(token)
	assert.NoError(t, err)
}

func TestSessionManager_TokenFromOtherServer(t *testing.T) {
	// Same secret, different registry: a token issued elsewhere (or before
	// a restart) has no server-side record here.
	issuer := newTestSessionManager(t)
	other := newTestSessionManager(t)

	token, _, err := issuer.Create(1)
	require.NoError(t, err)

	_, err = other.Resolve(token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManager_InvalidToken(t *testing.T) {
	m := newTestSessionManager(t)

	_, err := m.Resolve("not-a-token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNewSessionManager_DefaultTTL(t *testing.T) {
	m := NewSessionManager(newTestTokenService(t), 0)
	assert.Equal(t, DefaultSessionTTL, m.TTL())
}
