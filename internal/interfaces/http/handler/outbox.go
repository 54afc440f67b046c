package handler

import (
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxHandler exposes the tenant's event delivery backlog
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

func (h *OutboxHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return uuid.Nil, false
	}
	return tenantID, true
}

// GetDeadLetterEntries lists entries that exhausted their retries
// GET /outbox/dead
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	entries, total, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, max(filter.Page, 1), filter.PageSize)
}

// RetryDeadEntry requeues a dead entry
// POST /outbox/dead/:id/retry
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// GetStats counts the tenant's entries per delivery state
// GET /outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	stats, err := h.outboxService.GetStats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
