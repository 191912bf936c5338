package mockapi

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only token shape the mock backend issues.
// Both tokens of a pair share SessionID so logout can revoke the pair.
// Refresh tokens carry no role; the role is re-read from the directory.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"sid"`
	TokenType TokenType `json:"token_type"`
}
