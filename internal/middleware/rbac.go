package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/models"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// PracticeScope rejects requests for practices the token does not cover. The
// practice is read from the practiceId path parameter.
func PracticeScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		practiceID := c.Param("practiceId")
		if practiceID == "" || !claims.CanAccessPractice(practiceID) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no access to this practice"))
			c.Abort()
			return
		}
		c.Next()
	}
}
