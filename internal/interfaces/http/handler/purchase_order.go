package handler

import (
	"errors"
	"io"
	"strconv"

	tradeapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader may carry the receiving idempotency key instead of the body field
const IdempotencyKeyHeader = "Idempotency-Key"

// PurchaseOrderHandler handles purchase order-related API endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orderService *tradeapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *tradeapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService: orderService,
	}
}

// orderScope resolves the tenant and the :id path parameter. It writes the error response itself.
func (h *PurchaseOrderHandler) orderScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return uuid.Nil, uuid.Nil, false
	}
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, orderID, true
}

// commandScope additionally resolves the calling actor
func (h *PurchaseOrderHandler) commandScope(c *gin.Context) (uuid.UUID, uuid.UUID, tradeapp.ActorRef, bool) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return uuid.Nil, uuid.Nil, tradeapp.ActorRef{}, false
	}
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "User context missing")
		return uuid.Nil, uuid.Nil, tradeapp.ActorRef{}, false
	}
	return tenantID, orderID, actor, true
}

// bindOptionalJSON binds the body when one was sent. Commands without arguments accept an empty body.
func (h *PurchaseOrderHandler) bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		h.ValidationError(c, err)
		return false
	}
	return true
}

func (h *PurchaseOrderHandler) respond(c *gin.Context, order *tradeapp.PurchaseOrderResponse, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Create creates a new draft purchase order
// POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return
	}
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "User context missing")
		return
	}

	var req tradeapp.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), tenantID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List returns a page of purchase orders
// GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return
	}

	var filter tradeapp.PurchaseOrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, max(filter.Page, 1), filter.PageSize)
}

// GetByID returns the order snapshot
// GET /purchase-orders/:id
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), tenantID, orderID)
	h.respond(c, order, err)
}

// GetByOrderNumber returns the order snapshot by its tenant-unique number
// GET /purchase-orders/number/:number
func (h *PurchaseOrderHandler) GetByOrderNumber(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return
	}
	order, err := h.orderService.GetByOrderNumber(c.Request.Context(), tenantID, c.Param("number"))
	h.respond(c, order, err)
}

// Update edits the header of a draft or rejected order
// PUT /purchase-orders/:id
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	var req tradeapp.UpdatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := h.orderService.Update(c.Request.Context(), tenantID, orderID, req)
	h.respond(c, order, err)
}

// Delete removes a draft or cancelled order
// DELETE /purchase-orders/:id
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	if err := h.orderService.Delete(c.Request.Context(), tenantID, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem appends a line item
// POST /purchase-orders/:id/items
func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	var req tradeapp.AddPurchaseOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := h.orderService.AddItem(c.Request.Context(), tenantID, orderID, req)
	h.respond(c, order, err)
}

// UpdateItem replaces the editable fields of a line item
// PUT /purchase-orders/:id/items/:item_id
func (h *PurchaseOrderHandler) UpdateItem(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	itemID, ok := h.parseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	var req tradeapp.UpdatePurchaseOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := h.orderService.UpdateItem(c.Request.Context(), tenantID, orderID, itemID, req)
	h.respond(c, order, err)
}

// RemoveItem deletes a line item. The expected version may be passed as ?expected_version=.
// DELETE /purchase-orders/:id/items/:item_id
func (h *PurchaseOrderHandler) RemoveItem(c *gin.Context) {
	tenantID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}
	itemID, ok := h.parseUUIDParam(c, "item_id")
	if !ok {
		return
	}

	var expectedVersion *int
	if raw := c.Query("expected_version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid expected_version")
			return
		}
		expectedVersion = &v
	}

	order, err := h.orderService.RemoveItem(c.Request.Context(), tenantID, orderID, itemID, expectedVersion)
	h.respond(c, order, err)
}

// Submit sends the order into approval
// POST /purchase-orders/:id/submit
func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.CommandRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.orderService.Submit(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Approve approves the current ladder level
// POST /purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.ApprovePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := h.orderService.Approve(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Reject sends the order back to the requester
// POST /purchase-orders/:id/reject
func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.RejectPurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := h.orderService.Reject(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Dispatch sends the approved order to the supplier
// POST /purchase-orders/:id/dispatch
func (h *PurchaseOrderHandler) Dispatch(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.CommandRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.orderService.Dispatch(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Receive records a receiving batch
// POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.ReceivePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	}
	order, err := h.orderService.ReceiveItems(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Cancel cancels an order that has not been received
// POST /purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.CancelPurchaseOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.orderService.Cancel(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// Close closes a partially received order
// POST /purchase-orders/:id/close
func (h *PurchaseOrderHandler) Close(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	var req tradeapp.CommandRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.orderService.Close(c.Request.Context(), tenantID, orderID, actor, req)
	h.respond(c, order, err)
}

// AvailableActions lists the commands the caller may run on the order
// GET /purchase-orders/:id/actions
func (h *PurchaseOrderHandler) AvailableActions(c *gin.Context) {
	tenantID, orderID, actor, ok := h.commandScope(c)
	if !ok {
		return
	}
	actions, err := h.orderService.GetAvailableActions(c.Request.Context(), tenantID, orderID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, actions)
}

// ApprovalLadder returns the configured approval levels
// GET /approval-ladder
func (h *PurchaseOrderHandler) ApprovalLadder(c *gin.Context) {
	h.Success(c, h.orderService.GetApprovalLadder())
}
