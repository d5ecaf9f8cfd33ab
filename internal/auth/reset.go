package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const resetTokenBytes = 32

// ResetTokenTTL is how long an issued password-reset token stays valid.
const ResetTokenTTL = time.Hour

// NewResetToken generates a single-use password-reset token. The hex
// plaintext is emailed to the user; only the SHA-256 digest is persisted.
func NewResetToken() (token, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the hex SHA-256 digest of a reset-token plaintext.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
