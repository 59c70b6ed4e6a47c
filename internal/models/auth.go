package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by issued session tokens
type TokenClaims struct {
	Type      string    `json:"type"`
	Role      string    `json:"role,omitempty"`
	RiskLabel RiskLabel `json:"risk,omitempty"`
	jwt.RegisteredClaims
}

// Username returns the subject of the token
func (c *TokenClaims) Username() string {
	return c.Subject
}
