package dto

import "github.com/golang-jwt/jwt/v5"

// Roles carried in access tokens.
const (
	RoleRespondent = "respondent"
	RoleReviewer   = "reviewer"
)

// AuthClaims defines the custom claims for JWT.
type AuthClaims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}
