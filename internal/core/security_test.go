// AngelaMos | 2026
// security_test.go

package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/core"
)

func TestHashPassword_Roundtrip(t *testing.T) {
	hash, err := core.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := core.VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = core.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := core.HashPassword("same input")
	require.NoError(t, err)
	second, err := core.HashPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	_, err := core.VerifyPassword("anything", "not-an-argon2-hash")
	require.Error(t, err)
}

func TestVerifyPasswordTimingSafe_NilHash(t *testing.T) {
	// The nil-hash path burns a comparison against a dummy hash so a
	// missing account costs the same as a wrong password.
	ok, err := core.VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordTimingSafe_RealHash(t *testing.T) {
	hash, err := core.HashPassword("hunter22")
	require.NoError(t, err)

	ok, err := core.VerifyPasswordTimingSafe("hunter22", &hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = core.VerifyPasswordTimingSafe("hunter2", &hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenHashing(t *testing.T) {
	token, err := core.GenerateRefreshToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	hash := core.HashToken(token)
	assert.NotEqual(t, token, hash)
	assert.True(t, core.CompareTokenHash(token, hash))
	assert.False(t, core.CompareTokenHash("tampered", hash))
}

func TestGenerateSecureToken_Length(t *testing.T) {
	first, err := core.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := core.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
