package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"supportchat/internal/repository"
	"supportchat/internal/transport/http/response"
)

// TenantAPIKey authenticates widget traffic. The embedded widget sends the
// tenant's API key in X-API-Key; visitors themselves are anonymous.
func TenantAPIKey(tenantRepo *repository.TenantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if apiKey == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing api key")
			c.Abort()
			return
		}

		tenant, err := tenantRepo.GetByAPIKey(apiKey)
		if err != nil {
			response.Error(c, 500, response.CodeInternalServer, "tenant lookup failed")
			c.Abort()
			return
		}
		if tenant == nil {
			response.Error(c, 401, response.CodeUnauthorized, "unknown api key")
			c.Abort()
			return
		}

		c.Set(ContextTenantIDKey, tenant.ID)
		c.Next()
	}
}
