package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// SwaggerProtection hides the API documentation unless it is enabled.
// Production deployments never enable it.
func SwaggerProtection(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(
				shared.CodeNotFound,
				"API documentation is not available",
			))
			return
		}
		c.Next()
	}
}
