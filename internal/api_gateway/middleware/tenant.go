package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TenantIDKey is the key used to store the tenant of a request in the context
const TenantIDKey = "tenant_id"

// TenantScope rejects requests whose tenant_id path segment is blank and records the tenant
// for logging. Every wallet, allocation and report query is filtered by it.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.Param("tenant_id"))
		if tenantID == "" {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "tenant_id is required")
			return
		}
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID returns the tenant recorded by TenantScope, or ""
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// abortWithError writes the standard error envelope without importing the handler package.
func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
