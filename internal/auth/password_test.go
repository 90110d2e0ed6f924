package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordService(1000, 8)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_WerkzeugFormat(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("pw123")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 3, "hash should be method$salt$digest: %q", hash)
	assert.Equal(t, "pbkdf2:sha256:1000", parts[0])
	assert.Len(t, parts[1], 8, "salt length")
	assert.Len(t, parts[2], 64, "hex-encoded sha256 digest")
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, err := ps.Hash("same-password")
	require.NoError(t, err)
	hash2, err := ps.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "salt must be random")
}

func TestHash_RejectsOverlongPassword(t *testing.T) {
	ps := newTestPasswordService()

	_, err := ps.Hash(strings.Repeat("a", MaxPasswordLength+1))
	assert.Error(t, err)
}

func TestNewPasswordService_Defaults(t *testing.T) {
	ps := NewPasswordService(0, 0)
	assert.Equal(t, DefaultIterations, ps.iterations)
	assert.Equal(t, DefaultSaltLength, ps.saltLength)
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_KnownWerkzeugHashes(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name string
		hash string
	}{
		{
			name: "sha256",
			hash: "pbkdf2:sha256:1000$NaCl1234$e80206fe0774817fb10a5070f99a1db3a955d3360e4fbba6568d6ffc563a5e76",
		},
		{
			name: "sha512",
			hash: "pbkdf2:sha512:1000$NaCl1234$df978983ef4a18b7d9be578f2e7eaabb7cf36178a81ee795ca48530fdddab10bfe51277b186b57747ca48aef9feb96d4ba1b6625b521227e5edfe96e34af2d49",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, ps.Verify(tc.hash, "pw123"))
			assert.ErrorIs(t, ps.Verify(tc.hash, "pw124"), ErrPasswordMismatch)
		})
	}
}

func TestVerify_Bcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hashed, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ps.Verify(string(hashed), "legacy-password"))
	assert.ErrorIs(t, ps.Verify(string(hashed), "wrong"), ErrPasswordMismatch)
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("the-real-password")
	require.NoError(t, err)

	err = ps.Verify(hash, "the-wrong-password")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestVerify_EmptyPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("some-password")
	require.NoError(t, err)

	assert.Error(t, ps.Verify(hash, ""))
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService()

	for _, garbage := range []string{
		"not-a-valid-hash",
		"pbkdf2:sha256:1000$onlysalt",
		"pbkdf2:md5:1000$salt$abcd",
		"pbkdf2:sha256:abc$salt$abcd",
		"scrypt:32768:8:1$salt$abcd",
		"pbkdf2:sha256:1000$salt$not-hex",
	} {
		err := ps.Verify(garbage, "password")
		require.Error(t, err, "Verify(%q) should fail", garbage)
		assert.False(t, errors.Is(err, ErrPasswordMismatch),
			"a malformed hash is not a password mismatch: %q", garbage)
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
	}{
		{"simple alphanumeric", "hello123"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
		{"contains dollar separators", "a$b$c"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			require.NoError(t, err)
			assert.NoError(t, ps.Verify(hash, tc.password))
		})
	}
}
