package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProfilingLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID := uuid.New()

	tests := []struct {
		name    string
		enabled bool
		route   string
		tenant  string
	}{
		{"enabled", true, "/orders/:id/receive", tenantID.String()},
		{"disabled", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var route, tenant string
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set(TenantIDKey, tenantID)
				c.Next()
			}, ProfilingLabels(tt.enabled))
			router.POST("/orders/:id/receive", func(c *gin.Context) {
				route, _ = pprof.Label(c.Request.Context(), telemetry.ProfilingLabelRoute)
				tenant, _ = pprof.Label(c.Request.Context(), telemetry.ProfilingLabelTenantID)
				c.Status(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/42/receive", nil))
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.route, route)
			assert.Equal(t, tt.tenant, tenant)
		})
	}
}
