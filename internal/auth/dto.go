package auth

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/users"
)

// SignUpRequest is the body of the sign-up endpoint.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignInRequest captures the user credentials sent to the sign-in endpoint.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token issued with the current session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Session is returned by every flow that issues tokens.
type Session struct {
	AccessToken     string         `json:"access_token"`
	RefreshToken    string         `json:"refresh_token"`
	ExpiresAt       time.Time      `json:"expires_at"`
	User            *users.UserDTO `json:"user"`
	ProfileComplete bool           `json:"profile_complete"`
}
