package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("", time.Minute, time.Hour)
	require.Error(t, err)
}

func TestIssueAccess_Claims(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	token, err := m.IssueAccess(1, "a@x.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueRefresh_Claims(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	token, err := m.IssueRefresh(42, "b@x.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_ExpiredToken(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager("test-secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := m.IssueAccess(1, "a@x.com")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	other, err := NewTokenManager("other-secret", 15*time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := other.IssueAccess(1, "a@x.com")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "truncated", token: "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaims_UserID_Invalid(t *testing.T) {
	t.Parallel()

	claims := &Claims{}
	claims.Subject = "zero"
	_, err := claims.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims.Subject = "0"
	_, err = claims.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
