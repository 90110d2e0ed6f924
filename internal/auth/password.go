package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations matches Werkzeug's current default.
	DefaultIterations = 600000
	DefaultSaltLength = 16

	// MaxPasswordLength bounds the work an attacker can make one login cost.
	MaxPasswordLength = 1024

	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords.
//
// HASH FORMAT:
// New hashes use PBKDF2-HMAC-SHA256 in the Werkzeug string format, so the
// salt, iteration count and algorithm travel with the hash:
//
//	pbkdf2:sha256:600000$<salt>$<hex digest>
//	       ^      ^       ^      ^
//	       |      |       |      derived key, hex encoded
//	       |      |       random salt, stored in clear
//	       |      iterations (the work factor)
//	       hash function
//
// No separate salt or cost column is needed: Verify reads everything it
// needs back out of the stored string.
//
// Verify also accepts pbkdf2:sha512 and bcrypt ($2a$/$2b$) strings, which
// lets accounts imported from an older deployment keep logging in.
//
// Iterations are injectable so tests can hash in microseconds.
type PasswordService struct {
	iterations int
	saltLength int
}

// NewPasswordService creates a PasswordService. Zero values select the
// defaults.
func NewPasswordService(iterations, saltLength int) *PasswordService {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if saltLength <= 0 {
		saltLength = DefaultSaltLength
	}
	return &PasswordService{iterations: iterations, saltLength: saltLength}
}

// Hash returns a self-describing PBKDF2-SHA256 hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)
	}

	salt, err := randomSalt(p.saltLength)
	if err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(plaintext), []byte(salt), p.iterations, sha256.Size, sha256.New)

	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", p.iterations, salt, hex.EncodeToString(digest)), nil
}

// Verify checks plaintext against a stored hash.
//
// Returns nil on a match, ErrPasswordMismatch on a wrong password, and a
// different error if the stored hash cannot be parsed.
func (p *PasswordService) Verify(stored, plaintext string) error {
	if strings.HasPrefix(stored, "$2") {
		return verifyBcrypt(stored, plaintext)
	}
	return verifyPBKDF2(stored, plaintext)
}

func verifyPBKDF2(stored, plaintext string) error {
	method, rest, ok := strings.Cut(stored, "$")
	if !ok {
		return fmt.Errorf("auth: malformed password hash")
	}
	salt, digestHex, ok := strings.Cut(rest, "$")
	if !ok {
		return fmt.Errorf("auth: malformed password hash")
	}

	parts := strings.Split(method, ":")
	if parts[0] != "pbkdf2" || len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("auth: unsupported hash method %q", method)
	}

	var newHash func() hash.Hash
	var size int
	switch parts[1] {
	case "sha256":
		newHash, size = sha256.New, sha256.Size
	case "sha512":
		newHash, size = sha512.New, sha512.Size
	default:
		return fmt.Errorf("auth: unsupported hash function %q", parts[1])
	}

	iterations := DefaultIterations
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("auth: invalid iteration count %q", parts[2])
		}
		iterations = n
	}

	want, err := hex.DecodeString(digestHex)
	if err != nil {
		return fmt.Errorf("auth: decoding password hash: %w", err)
	}

	got := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, size, newHash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func verifyBcrypt(stored, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing bcrypt hash: %w", err)
	}
	return nil
}

func randomSalt(n int) (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltAlphabet[i.Int64()])
	}
	return b.String(), nil
}
