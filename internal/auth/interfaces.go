package auth

import (
	"context"

	"github.com/google/uuid"
)

// TokenService defines the interface for session token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Authenticator defines the session-issuing surface of the auth service.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AuthResponse, error)
	ResetPassword(ctx context.Context, token, password string) (*AuthResponse, error)
}

// Compile-time interface satisfaction checks
var (
	_ TokenService  = (*JWTService)(nil)
	_ Authenticator = (*Service)(nil)
)
