package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireRole is a middleware that checks if the user has the required role.
// It must run after OAuth2Auth.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(UserIDKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "Authentication credentials were not provided."))
			return
		}

		role, _ := c.Get(UserRoleKey)
		userRole, ok := role.(string)
		if !ok || userRole != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden,
				models.NewAPIError(models.ErrForbidden, "You do not have permission to perform this action.",
					map[string]interface{}{"required_role": requiredRole}))
			return
		}

		c.Next()
	}
}
