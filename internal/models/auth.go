package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Role        UserRole  `json:"role"`
	PersonID    string    `json:"person_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	PersonID   string   `json:"person_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	TimeZoneID string   `json:"zone,omitempty"`
	jwt.RegisteredClaims
}
