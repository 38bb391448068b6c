package rmiddleware

import (
	"net/http"
	"strings"

	"github.com/DhavalSuthar-24/crease/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RoleMiddleware lets the request through when the token's role is one of
// requiredRoles. It must run after middleware.AuthMiddleware.
func RoleMiddleware(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := middleware.GetUserIDFromContext(c); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: " + err.Error()})
			return
		}

		role := middleware.GetRoleFromContext(c)
		for _, requiredRole := range requiredRoles {
			if strings.EqualFold(role, requiredRole) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Forbidden",
			"message":   "You don't have permission to access this resource",
			"required":  requiredRoles,
			"user_role": role,
		})
	}
}

// AdminMiddleware is a convenience middleware for admin-only access
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware("admin")
}

// ScorerMiddleware admits match officials who may change a score.
func ScorerMiddleware() gin.HandlerFunc {
	return RoleMiddleware("scorer", "admin")
}
