// AngelaMos | 2026
// jwt_test.go

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/auth"
	"github.com/angelamos/socialfinance/internal/config"
	"github.com/angelamos/socialfinance/internal/core"
)

func newTestManager(t *testing.T, accessExpire time.Duration) *auth.JWTManager {
	t.Helper()

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "jwt_private.pem")
	publicPath := filepath.Join(dir, "jwt_public.pem")

	require.NoError(t, auth.GenerateKeyPair(privatePath, publicPath))

	manager, err := auth.NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privatePath,
		PublicKeyPath:      publicPath,
		AccessTokenExpire:  accessExpire,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "socialfinance-test",
		Audience:           "socialfinance-api",
	})
	require.NoError(t, err)

	return manager
}

func TestAccessToken_Roundtrip(t *testing.T) {
	manager := newTestManager(t, 15*time.Minute)

	token, err := manager.CreateAccessToken(auth.AccessTokenClaims{
		UserID:       "user-1",
		Role:         "user",
		TokenVersion: 3,
	})
	require.NoError(t, err)

	claims, err := manager.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)
}

func TestAccessToken_Expired(t *testing.T) {
	manager := newTestManager(t, -time.Minute)

	token, err := manager.CreateAccessToken(auth.AccessTokenClaims{
		UserID: "user-1",
		Role:   "user",
	})
	require.NoError(t, err)

	_, err = manager.VerifyAccessToken(context.Background(), token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestAccessToken_WrongKeyRejected(t *testing.T) {
	issuer := newTestManager(t, 15*time.Minute)
	verifier := newTestManager(t, 15*time.Minute)

	token, err := issuer.CreateAccessToken(auth.AccessTokenClaims{
		UserID: "user-1",
		Role:   "user",
	})
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), token)
	require.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestAccessToken_GarbageRejected(t *testing.T) {
	manager := newTestManager(t, 15*time.Minute)

	_, err := manager.VerifyAccessToken(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefreshToken_HashVerifies(t *testing.T) {
	manager := newTestManager(t, 15*time.Minute)

	data, err := manager.CreateRefreshToken("user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, data.Token)
	assert.NotEmpty(t, data.FamilyID)
	assert.True(t, data.ExpiresAt.After(time.Now()))

	assert.True(t, manager.VerifyRefreshTokenHash(data.Token, data.Hash))
	assert.False(t, manager.VerifyRefreshTokenHash("other-token", data.Hash))
}

func TestRefreshToken_KeepsFamilyID(t *testing.T) {
	manager := newTestManager(t, 15*time.Minute)

	data, err := manager.CreateRefreshToken("user-1", "family-abc")
	require.NoError(t, err)
	assert.Equal(t, "family-abc", data.FamilyID)
}

func TestJWKSHandler(t *testing.T) {
	manager := newTestManager(t, 15*time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()

	manager.GetJWKSHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"keys"`)
	assert.Contains(t, rec.Body.String(), manager.GetKeyID())
}
