package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

// RequireRoles admits callers whose role satisfies one of roles. Administrators always pass.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.Role.Satisfies(roles...) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
