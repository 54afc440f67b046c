package router

import (
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/handler"
)

// PurchaseOrderRoutes mounts the purchase order lifecycle under /purchase-orders
func PurchaseOrderRoutes(h *handler.PurchaseOrderHandler) *DomainGroup {
	g := NewDomainGroup("purchase-orders", "/purchase-orders")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/number/:number", h.GetByOrderNumber)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/actions", h.AvailableActions)

	items := g.Group("items", "/:id/items")
	items.POST("", h.AddItem)
	items.PUT("/:item_id", h.UpdateItem)
	items.DELETE("/:item_id", h.RemoveItem)

	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/dispatch", h.Dispatch)
	g.POST("/:id/receive", h.Receive)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/close", h.Close)
	return g
}

// ApprovalLadderRoutes exposes the configured ladder
func ApprovalLadderRoutes(h *handler.PurchaseOrderHandler) *DomainGroup {
	return NewDomainGroup("approval-ladder", "/approval-ladder").GET("", h.ApprovalLadder)
}

// OutboxRoutes mounts the tenant's event delivery admin endpoints
func OutboxRoutes(h *handler.OutboxHandler) *DomainGroup {
	g := NewDomainGroup("outbox", "/outbox")
	g.GET("/stats", h.GetStats)
	g.GET("/dead", h.GetDeadLetterEntries)
	g.POST("/dead/:id/retry", h.RetryDeadEntry)
	return g
}
