package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds the payload for creating a new account.
type RegisterRequest struct {
	Nome  string `json:"nome" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Senha string `json:"senha" validate:"required,min=8"`
	Tipo  Role   `json:"tipo" validate:"required"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Senha     string `json:"senha" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID    string `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Tipo  Role   `json:"tipo"`
}

// JWTClaims represents the JWT payload for access tokens. It is the identity
// threaded into every workflow operation; there is no ambient current user.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Tipo   Role   `json:"tipo"`
	Email  string `json:"email"`
	Nome   string `json:"nome"`
	jwt.RegisteredClaims
}
