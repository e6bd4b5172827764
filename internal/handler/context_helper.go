package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/portafolio-docente-api/internal/middleware"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerFromContext resolves the authenticated caller or writes a 401 envelope.
func viewerFromContext(c *gin.Context) (models.Viewer, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Viewer{}, false
	}
	return models.ViewerFromClaims(claims), true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// pathID returns the :id parameter or writes a 400 envelope when it is not a UUID.
func pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, invalidPayload(err, "id must be a valid UUID"))
		return "", false
	}
	return id, true
}
