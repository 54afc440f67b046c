package middleware

import (
	"errors"
	"net/http"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantIDKey holds the parsed tenant UUID in gin.Context
const TenantIDKey = "tenant_id"

// ErrTenantMissing is returned when no tenant was resolved for the request
var ErrTenantMissing = errors.New("tenant context missing")

// TenantMiddleware resolves the tenant from the JWT claims. It must run after the JWT middleware.
// Tenants are never taken from headers: an order is only visible to the tenant in the token.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := GetJWTTenantID(c)
		if raw == "" {
			abortTenant(c, "Tenant context required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortTenant(c, "Invalid tenant ID format")
			return
		}
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

func abortTenant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, c.GetString(RequestIDKey)))
}

// GetTenantUUID returns the tenant resolved by TenantMiddleware
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, nil
		}
	}
	return uuid.Nil, ErrTenantMissing
}
