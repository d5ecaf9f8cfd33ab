package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestNewResetToken(t *testing.T) {
	t.Parallel()

	token, digest, err := NewResetToken()
	require.NoError(t, err)

	assert.True(t, hexPattern.MatchString(token), "token %q is not 64 hex chars", token)
	assert.True(t, hexPattern.MatchString(digest), "digest %q is not 64 hex chars", digest)
	assert.NotEqual(t, token, digest)

	assert.Equal(t, digest, HashResetToken(token))
}

func TestNewResetToken_Unique(t *testing.T) {
	t.Parallel()

	a, _, err := NewResetToken()
	require.NoError(t, err)
	b, _, err := NewResetToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashResetToken_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashResetToken("abc"), HashResetToken("abc"))
	assert.NotEqual(t, HashResetToken("abc"), HashResetToken("abd"))
}
