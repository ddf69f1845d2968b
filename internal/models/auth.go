package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Credential is a provisioned login. Username is case-sensitive and PasswordHash
// is an opaque record produced by pkg/auth.
type Credential struct {
	Username     string
	PasswordHash string
}

// TokenClaims is the signed claim set carried by a session token.
// ExpiresAt mirrors the session's expiry at issuance.
type TokenClaims struct {
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	ClientIP  string `json:"ip"`
	jwt.RegisteredClaims
}
