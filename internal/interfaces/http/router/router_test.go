package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouter_MiddlewareOnlyOnAPIPrefix(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	})
	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/test/ping").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("purchase-orders", "/purchase-orders")
		assert.Equal(t, "purchase-orders", g.Name())
		assert.Equal(t, "/purchase-orders", g.Prefix())
	})

	t.Run("all methods", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		NewDomainGroup("test", "/test").
			GET("/a", ok).
			POST("/a", ok).
			PUT("/a/:id", ok).
			DELETE("/a/:id", ok).
			RegisterRoutes(engine.Group("/api/v1"))

		for _, tt := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/test/a"},
			{http.MethodPost, "/api/v1/test/a"},
			{http.MethodPut, "/api/v1/test/a/1"},
			{http.MethodDelete, "/api/v1/test/a/1"},
		} {
			assert.Equal(t, http.StatusOK, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("group middleware and subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("orders", "/orders").Use(func(c *gin.Context) {
			c.Header("X-Group", "orders")
			c.Next()
		})
		g.Group("items", "/:id/items").GET("", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("id"))
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/orders/42/items")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "42", w.Body.String())
		assert.Equal(t, "orders", w.Header().Get("X-Group"))
	})
}

func TestPurchaseOrderRoutes(t *testing.T) {
	engine := gin.New()
	h := handler.NewPurchaseOrderHandler(nil)
	NewRouter(engine).
		Register(PurchaseOrderRoutes(h)).
		Register(ApprovalLadderRoutes(h)).
		Register(OutboxRoutes(handler.NewOutboxHandler(nil))).
		Setup()

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"POST /api/v1/purchase-orders",
		"GET /api/v1/purchase-orders",
		"GET /api/v1/purchase-orders/number/:number",
		"GET /api/v1/purchase-orders/:id",
		"PUT /api/v1/purchase-orders/:id",
		"DELETE /api/v1/purchase-orders/:id",
		"GET /api/v1/purchase-orders/:id/actions",
		"POST /api/v1/purchase-orders/:id/items",
		"PUT /api/v1/purchase-orders/:id/items/:item_id",
		"DELETE /api/v1/purchase-orders/:id/items/:item_id",
		"POST /api/v1/purchase-orders/:id/submit",
		"POST /api/v1/purchase-orders/:id/approve",
		"POST /api/v1/purchase-orders/:id/reject",
		"POST /api/v1/purchase-orders/:id/dispatch",
		"POST /api/v1/purchase-orders/:id/receive",
		"POST /api/v1/purchase-orders/:id/cancel",
		"POST /api/v1/purchase-orders/:id/close",
		"GET /api/v1/approval-ladder",
		"GET /api/v1/outbox/stats",
		"GET /api/v1/outbox/dead",
		"POST /api/v1/outbox/dead/:id/retry",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, registered, len(expected))
}
