package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles the identity provider issues.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleStaff   UserRole = "STAFF"
)

// JWTClaims represents the access token payload. Admins may act on any
// practice; everyone else only on the practices listed.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	PracticeIDs []string `json:"practice_ids"`
	jwt.RegisteredClaims
}

// CanAccessPractice reports whether the token grants access to practiceID.
func (c *JWTClaims) CanAccessPractice(practiceID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleAdmin {
		return true
	}
	for _, id := range c.PracticeIDs {
		if id == practiceID {
			return true
		}
	}
	return false
}
