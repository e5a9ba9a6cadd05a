// Package auth provides authentication and authorization functionality.
// This file defines the request and response payloads for the auth endpoints.
package auth

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Name         string `json:"name" example:"Joana Silva"`
	Email        string `json:"email" example:"joana@example.com"`
	Registration string `json:"registration" example:"2024-0117"`
	Password     string `json:"password" example:"strongpassword123"`
}

// LoginRequest represents the login request payload. Login accepts either
// the email address or the registration code.
type LoginRequest struct {
	Login    string `json:"login" example:"joana@example.com"`
	Password string `json:"password" example:"strongpassword123"`
}

// TokenResponse represents the authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"3600"` // Unix time the access token expires at
}

// RefreshTokenRequest represents the token refresh request payload.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}
