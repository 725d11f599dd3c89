package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caycohq/cayco-server/internal/auth"
)

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	userID := uuid.New()

	t.Run("generates valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("token contains correct issuer and subject", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "cayco", claims.Issuer)
		assert.Equal(t, userID.String(), claims.Subject)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	userID := uuid.New()

	t.Run("rejects expired token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", 1*time.Millisecond)

		token, err := jwtService.GenerateToken(userID)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = jwtService.ValidateToken(token)
		assert.Equal(t, auth.ErrExpiredToken, err)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

		token, err := jwtService.GenerateToken(userID)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token + "x")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		one := auth.NewJWTService("secret-one", 24*time.Hour)
		two := auth.NewJWTService("secret-two", 24*time.Hour)

		token, err := one.GenerateToken(userID)
		require.NoError(t, err)

		_, err = two.ValidateToken(token)
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
		_, err := jwtService.ValidateToken("not-a-jwt")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})
}

func TestSingleUseTokens(t *testing.T) {
	t.Run("invite token is stored in plaintext", func(t *testing.T) {
		token := auth.NewInviteToken(time.Hour)
		assert.Equal(t, token.Plaintext, token.StoredForm)
		assert.Len(t, token.Plaintext, 64)
		assert.True(t, token.ExpiresAt.After(time.Now()))
	})

	t.Run("reset token is stored hashed", func(t *testing.T) {
		token := auth.NewResetToken(10 * time.Minute)
		assert.NotEqual(t, token.Plaintext, token.StoredForm)
		assert.Equal(t, auth.HashToken(token.Plaintext), token.StoredForm)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a := auth.NewInviteToken(time.Hour)
		b := auth.NewInviteToken(time.Hour)
		assert.NotEqual(t, a.Plaintext, b.Plaintext)
	})

	t.Run("hash is deterministic", func(t *testing.T) {
		assert.Equal(t, auth.HashToken("abc"), auth.HashToken("abc"))
		assert.NotEqual(t, auth.HashToken("abc"), auth.HashToken("abd"))
	})
}
