package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Refresh tokens are opaque: "<userID>.<secret>". Only a bcrypt hash of the
// secret is stored on the user row, so a leaked database does not yield
// usable refresh tokens. Issuing a new token replaces the hash, which
// invalidates the previous token (single active refresh token per user).

// defaultCost is the bcrypt work factor for hashing refresh secrets.
const defaultCost = 12

// SecretHasher hashes and verifies refresh-token secrets with bcrypt.
// The cost is injectable so tests can use the bcrypt minimum and stay fast.
type SecretHasher struct {
	cost int
}

// NewSecretHasher creates a SecretHasher with the default cost.
func NewSecretHasher() *SecretHasher {
	return &SecretHasher{cost: defaultCost}
}

// NewSecretHasherForTest creates a SecretHasher with a custom (low) cost.
// Do not use in production.
func NewSecretHasherForTest(cost int) *SecretHasher {
	return &SecretHasher{cost: cost}
}

// Hash hashes the given secret. The output embeds salt and cost; store it
// directly.
func (h *SecretHasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing refresh secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a secret against a stored hash. Returns nil on match.
func (h *SecretHasher) Verify(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("auth: refresh token mismatch")
		}
		return fmt.Errorf("auth: comparing refresh secret: %w", err)
	}
	return nil
}

// refreshSecretBytes is the entropy of a refresh secret. Hex encoding
// doubles it on the wire, keeping the secret under bcrypt's 72-byte input
// limit.
const refreshSecretBytes = 32

// NewRefreshSecret returns a fresh refresh-token secret drawn from
// crypto/rand.
func NewRefreshSecret() string {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the platform cannot supply entropy;
		// issuing any token at that point would be worse than crashing.
		panic(fmt.Sprintf("auth: reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

// FormatRefreshToken builds the cookie value from its parts.
func FormatRefreshToken(userID, secret string) string {
	return userID + "." + secret
}

// ParseRefreshToken splits a cookie value back into userID and secret.
func ParseRefreshToken(token string) (userID, secret string, err error) {
	userID, secret, ok := strings.Cut(token, ".")
	if !ok || userID == "" || secret == "" {
		return "", "", errors.New("auth: malformed refresh token")
	}
	return userID, secret, nil
}
