package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: OrganizationID must be present for all activity.
// Cross-organization access is never granted through claims alone.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           string    `json:"role"`
	TokenType      TokenType `json:"token_type"`
}
