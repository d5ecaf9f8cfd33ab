package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	digest, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "secret1", digest)

	assert.True(t, CheckPassword(digest, "secret1"))
	assert.False(t, CheckPassword(digest, "secret2"))
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("secret1")
	require.NoError(t, err)
	second, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword(first, "secret1"))
	assert.True(t, CheckPassword(second, "secret1"))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		digest string
	}{
		{name: "empty", digest: ""},
		{name: "garbage", digest: "not-a-bcrypt-digest"},
		{name: "truncated", digest: "$2a$10$short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, CheckPassword(tt.digest, "secret1"))
		})
	}
}
