// Package services provides technical concerns like token issuance and caching
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "test-secret-key-for-jwt-signing-32-chars"

func newHMACTokenService(t *testing.T) TokenService {
	t.Helper()
	service, err := NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		testSecretKey,
	)
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	t.Run("symmetric key configuration", func(t *testing.T) {
		service, err := NewTokenService(15*time.Minute, 24*time.Hour, "iss", "aud", false, "", "", testSecretKey)
		require.NoError(t, err)
		assert.NotNil(t, service)
	})

	t.Run("missing secret key fails", func(t *testing.T) {
		service, err := NewTokenService(15*time.Minute, 24*time.Hour, "iss", "aud", false, "", "", "")
		require.Error(t, err)
		assert.Nil(t, service)
	})

	t.Run("RSA mode requires both keys", func(t *testing.T) {
		service, err := NewTokenService(15*time.Minute, 24*time.Hour, "iss", "aud", true, "", "", "")
		require.Error(t, err)
		assert.Nil(t, service)
	})
}

func TestGenerateAndValidateTokens(t *testing.T) {
	service := newHMACTokenService(t)

	accessToken, refreshToken, err := service.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	accessClaims, err := service.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accessClaims.UserID)
	assert.Equal(t, "access", accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	refreshClaims, err := service.ValidateToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), refreshClaims.UserID)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := newHMACTokenService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"not a JWT", "not-a-token"},
		{"truncated JWT", "eyJhbGciOiJIUzI1NiJ9.payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	service := newHMACTokenService(t)
	other, err := NewTokenService(15*time.Minute, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "a-completely-different-signing-secret")
	require.NoError(t, err)

	accessToken, _, err := other.GenerateTokens(7)
	require.NoError(t, err)

	claims, err := service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestValidateTokenExpired(t *testing.T) {
	service, err := NewTokenService(-time.Minute, 24*time.Hour, "test-issuer", "test-audience", false, "", "", testSecretKey)
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(7)
	require.NoError(t, err)

	claims, err := service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestRefreshToken(t *testing.T) {
	service := newHMACTokenService(t)

	t.Run("refresh token mints a new pair", func(t *testing.T) {
		_, refreshToken, err := service.GenerateTokens(9)
		require.NoError(t, err)

		newAccess, newRefresh, err := service.RefreshToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)
		assert.NotEqual(t, refreshToken, newRefresh)

		claims, err := service.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.UserID)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		accessToken, _, err := service.GenerateTokens(9)
		require.NoError(t, err)

		_, _, err = service.RefreshToken(accessToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a refresh token")
	})
}

func TestRevokeToken(t *testing.T) {
	service := newHMACTokenService(t)

	accessToken, refreshToken, err := service.GenerateTokens(3)
	require.NoError(t, err)

	assert.False(t, service.IsTokenRevoked(accessToken))
	require.NoError(t, service.RevokeToken(accessToken))
	assert.True(t, service.IsTokenRevoked(accessToken))

	claims, err := service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, claims)

	// Revocation covers a single jti, the paired refresh token stays usable.
	assert.False(t, service.IsTokenRevoked(refreshToken))
	_, err = service.ValidateToken(refreshToken)
	assert.NoError(t, err)

	t.Run("revoking twice is a no-op", func(t *testing.T) {
		assert.NoError(t, service.RevokeToken(accessToken))
	})

	t.Run("unparseable token counts as revoked", func(t *testing.T) {
		assert.True(t, service.IsTokenRevoked("garbage"))
	})
}
