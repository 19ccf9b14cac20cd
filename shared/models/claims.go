package models

import "github.com/golang-jwt/jwt/v5"

// TokenType различает access и refresh токены.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the signed payload of both access and refresh tokens.
// ID (jti), IssuedAt and ExpiresAt come from the embedded RegisteredClaims.
type Claims struct {
	UserID      string    `json:"user_id"`
	Permissions []string  `json:"permissions"`
	TokenType   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// HasPermission reports whether code is in the permission snapshot.
func (c *Claims) HasPermission(code string) bool {
	return HasPermission(c.Permissions, code)
}
