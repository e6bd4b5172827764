package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

// AuditRecorder accepts audit entries for asynchronous persistence.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditDenied records an audit entry whenever an authenticated caller is refused with 403.
func AuditDenied(recorder AuditRecorder, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() != http.StatusForbidden {
			return
		}
		value, ok := c.Get(ContextUserKey)
		claims, isClaims := value.(*models.JWTClaims)
		if !ok || !isClaims {
			return
		}

		userID := claims.UserID
		details := map[string]interface{}{
			"method": c.Request.Method,
			"route":  c.FullPath(),
			"role":   claims.Role,
		}
		entry := models.AuditLog{
			UserID:    &userID,
			Action:    models.AuditActionAccessDenied,
			Resource:  resource,
			NewValues: models.AuditValues(details),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		recorder.Record(c.Request.Context(), entry)
	}
}
