package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest is the reviewer login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ReviewerClaims are the JWT claims for the review API.
type ReviewerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
