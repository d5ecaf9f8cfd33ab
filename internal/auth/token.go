// Package auth implements the credential primitives of the session
// lifecycle: password hashing, the signed access/refresh token pair, and
// single-use password-reset tokens.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the "type" claim. Verification
// alone does not distinguish them; callers must check Claims.TokenType
// against the expected use.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong algorithm, malformed, or expired.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload shared by access and refresh tokens.
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim as a numeric user ID.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenManager issues and verifies the signed token pair with a single
// HS256 secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager constructs a TokenManager. An empty secret is a
// configuration error and must abort startup.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccess signs a short-lived access token for the user.
func (m *TokenManager) IssueAccess(userID int, email string) (string, error) {
	return m.issue(userID, email, TokenTypeAccess, m.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the user.
func (m *TokenManager) IssueRefresh(userID int, email string) (string, error) {
	return m.issue(userID, email, TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) issue(userID int, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry and returns the claims. It does not
// check the token type; that is the caller's responsibility.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}
