package types

import "github.com/golang-jwt/jwt/v5"

// Claims mirrors the token payload issued by the external auth provider. Only
// the subject (user id) is consumed here.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
