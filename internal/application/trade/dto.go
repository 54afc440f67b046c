package trade

import (
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Purchase Order DTOs ====================

// ActorRef identifies the caller of a command. Levels are the approval levels claimed by the
// identity provider; the ActorResolver decides how far they are trusted.
type ActorRef struct {
	ID     string
	Levels []int
}

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID                      `json:"supplier_id" binding:"required"`
	SupplierName         string                         `json:"supplier_name" binding:"required,min=1,max=200"`
	WarehouseID          *uuid.UUID                     `json:"warehouse_id"`
	Currency             string                         `json:"currency" binding:"omitempty,len=3"`
	ExpectedDeliveryDate *time.Time                     `json:"expected_delivery_date"`
	PaymentTerms         string                         `json:"payment_terms" binding:"max=200"`
	ShippingMethod       string                         `json:"shipping_method" binding:"max=100"`
	ShippingAddress      string                         `json:"shipping_address" binding:"max=500"`
	Items                []CreatePurchaseOrderItemInput `json:"items" binding:"dive"`
	Remark               string                         `json:"remark" binding:"max=500"`
}

// CreatePurchaseOrderItemInput represents an item in the create order request
type CreatePurchaseOrderItemInput struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	ProductName     string          `json:"product_name" binding:"required,min=1,max=200"`
	ProductCode     string          `json:"product_code" binding:"required,min=1,max=50"`
	Unit            string          `json:"unit" binding:"max=20"`
	Quantity        int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"decimal_nonneg"`
	DiscountPercent decimal.Decimal `json:"discount_percent" binding:"decimal_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent" binding:"decimal_percent"`
	TrackingMode    string          `json:"tracking_mode" binding:"omitempty,oneof=none lot serial"`
	Remark          string          `json:"remark" binding:"max=500"`
}

func (in CreatePurchaseOrderItemInput) toDomain() trade.LineItemInput {
	return trade.LineItemInput{
		ProductID:       in.ProductID,
		ProductCode:     in.ProductCode,
		ProductName:     in.ProductName,
		Unit:            in.Unit,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountPercent: in.DiscountPercent,
		TaxPercent:      in.TaxPercent,
		TrackingMode:    trade.TrackingMode(in.TrackingMode),
		Remark:          in.Remark,
	}
}

// UpdatePurchaseOrderRequest represents a request to update the header (draft or rejected only)
type UpdatePurchaseOrderRequest struct {
	SupplierID           *uuid.UUID `json:"supplier_id"`
	SupplierName         *string    `json:"supplier_name" binding:"omitempty,min=1,max=200"`
	WarehouseID          *uuid.UUID `json:"warehouse_id"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	PaymentTerms         *string    `json:"payment_terms" binding:"omitempty,max=200"`
	ShippingMethod       *string    `json:"shipping_method" binding:"omitempty,max=100"`
	ShippingAddress      *string    `json:"shipping_address" binding:"omitempty,max=500"`
	Remark               *string    `json:"remark" binding:"omitempty,max=500"`
	ExpectedVersion      *int       `json:"expected_version"`
}

// AddPurchaseOrderItemRequest represents a request to add an item to a purchase order
type AddPurchaseOrderItemRequest struct {
	CreatePurchaseOrderItemInput
	ExpectedVersion *int `json:"expected_version"`
}

// UpdatePurchaseOrderItemRequest replaces the editable fields of an item
type UpdatePurchaseOrderItemRequest struct {
	CreatePurchaseOrderItemInput
	ExpectedVersion *int `json:"expected_version"`
}

// CommandRequest is the body of commands without arguments
type CommandRequest struct {
	ExpectedVersion *int `json:"expected_version"`
}

// ApprovePurchaseOrderRequest approves the order at the given ladder level
type ApprovePurchaseOrderRequest struct {
	Level           int    `json:"level" binding:"required,min=1"`
	Comment         string `json:"comment" binding:"max=500"`
	ExpectedVersion *int   `json:"expected_version"`
}

// RejectPurchaseOrderRequest rejects the order with a reason
type RejectPurchaseOrderRequest struct {
	Reason          string `json:"reason" binding:"required,min=1,max=500"`
	ExpectedVersion *int   `json:"expected_version"`
}

// CancelPurchaseOrderRequest represents a request to cancel a purchase order
type CancelPurchaseOrderRequest struct {
	Reason          string `json:"reason" binding:"max=500"`
	ExpectedVersion *int   `json:"expected_version"`
}

// ReceiveItemInput represents one entry of a receiving batch
type ReceiveItemInput struct {
	LineID        uuid.UUID  `json:"line_id" binding:"required"`
	Quantity      int64      `json:"quantity" binding:"required,min=1"`
	Condition     string     `json:"condition" binding:"omitempty,oneof=good damaged rejected"`
	LotNumber     string     `json:"lot_number" binding:"max=100"`
	SerialNumbers []string   `json:"serial_numbers"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Remark        string     `json:"remark" binding:"max=500"`
}

// ReceivePurchaseOrderRequest represents a request to receive goods for a purchase order.
// A repeated IdempotencyKey returns the current order without applying the batch again.
type ReceivePurchaseOrderRequest struct {
	Items           []ReceiveItemInput `json:"items" binding:"required,min=1,dive"`
	IdempotencyKey  string             `json:"idempotency_key" binding:"max=128"`
	ExpectedVersion *int               `json:"expected_version"`
}

func (r ReceivePurchaseOrderRequest) toCommand() trade.ReceiveItemsCommand {
	receipts := make([]trade.ReceiptLine, len(r.Items))
	for i, item := range r.Items {
		receipts[i] = trade.ReceiptLine{
			LineID:        item.LineID,
			Quantity:      item.Quantity,
			Condition:     trade.ReceiptCondition(item.Condition),
			LotNumber:     item.LotNumber,
			SerialNumbers: item.SerialNumbers,
			ExpiresAt:     item.ExpiresAt,
			Remark:        item.Remark,
		}
	}
	return trade.ReceiveItemsCommand{Receipts: receipts}
}

// PurchaseOrderListFilter represents filter options for purchase order list
type PurchaseOrderListFilter struct {
	Search      string     `form:"search"`
	SupplierID  *uuid.UUID `form:"supplier_id"`
	WarehouseID *uuid.UUID `form:"warehouse_id"`
	Status      string     `form:"status"`
	Statuses    []string   `form:"statuses"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseOrderResponse is the order snapshot returned by every query and command
type PurchaseOrderResponse struct {
	ID                   uuid.UUID                   `json:"id"`
	TenantID             uuid.UUID                   `json:"tenant_id"`
	OrderNumber          string                      `json:"order_number"`
	Status               string                      `json:"status"`
	SupplierID           uuid.UUID                   `json:"supplier_id"`
	SupplierName         string                      `json:"supplier_name"`
	WarehouseID          *uuid.UUID                  `json:"warehouse_id,omitempty"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	Currency             string                      `json:"currency"`
	Items                []PurchaseOrderItemResponse `json:"items"`
	ItemCount            int                         `json:"item_count"`
	Subtotal             decimal.Decimal             `json:"subtotal"`
	DiscountTotal        decimal.Decimal             `json:"discount_total"`
	TaxTotal             decimal.Decimal             `json:"tax_total"`
	Total                decimal.Decimal             `json:"total"`
	TotalsConsistent     bool                        `json:"totals_consistent"`
	LedgerConsistent     bool                        `json:"ledger_consistent"`
	CurrentApprovalLevel int                         `json:"current_approval_level"`
	NextApprovalLevel    *int                        `json:"next_approval_level,omitempty"`
	ApprovalHistory      []ApprovalRecordResponse    `json:"approval_history"`
	Receipts             []ReceivingEventResponse    `json:"receipts"`
	PaymentTerms         string                      `json:"payment_terms,omitempty"`
	ShippingMethod       string                      `json:"shipping_method,omitempty"`
	ShippingAddress      string                      `json:"shipping_address,omitempty"`
	Remark               string                      `json:"remark"`
	SubmittedAt          *time.Time                  `json:"submitted_at,omitempty"`
	ApprovedAt           *time.Time                  `json:"approved_at,omitempty"`
	RejectedAt           *time.Time                  `json:"rejected_at,omitempty"`
	RejectReason         string                      `json:"reject_reason,omitempty"`
	DispatchedAt         *time.Time                  `json:"dispatched_at,omitempty"`
	CancelledAt          *time.Time                  `json:"cancelled_at,omitempty"`
	CancelReason         string                      `json:"cancel_reason,omitempty"`
	ClosedAt             *time.Time                  `json:"closed_at,omitempty"`
	CreatedBy            string                      `json:"created_by,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
	Version              int                         `json:"version"`
}

// PurchaseOrderListItemResponse represents a purchase order in list responses (less detail)
type PurchaseOrderListItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	OrderNumber          string          `json:"order_number"`
	Status               string          `json:"status"`
	SupplierID           uuid.UUID       `json:"supplier_id"`
	SupplierName         string          `json:"supplier_name"`
	WarehouseID          *uuid.UUID      `json:"warehouse_id,omitempty"`
	Currency             string          `json:"currency"`
	Total                decimal.Decimal `json:"total"`
	ItemCount            int             `json:"item_count"`
	CurrentApprovalLevel int             `json:"current_approval_level"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
}

// PurchaseOrderItemResponse represents a purchase order item in API responses
type PurchaseOrderItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	Unit              string          `json:"unit"`
	OrderedQuantity   int64           `json:"ordered_quantity"`
	ReceivedQuantity  int64           `json:"received_quantity"`
	DamagedQuantity   int64           `json:"damaged_quantity"`
	RejectedQuantity  int64           `json:"rejected_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	TaxPercent        decimal.Decimal `json:"tax_percent"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	Total             decimal.Decimal `json:"total"`
	TrackingMode      string          `json:"tracking_mode"`
	Remark            string          `json:"remark,omitempty"`
}

// ApprovalRecordResponse is one entry of the approval history
type ApprovalRecordResponse struct {
	Level      int       `json:"level"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReceivingEventResponse is one entry of the receiving ledger
type ReceivingEventResponse struct {
	ID            uuid.UUID  `json:"id"`
	LineID        uuid.UUID  `json:"line_id"`
	Quantity      int64      `json:"quantity"`
	Condition     string     `json:"condition"`
	LotNumber     string     `json:"lot_number,omitempty"`
	SerialNumbers []string   `json:"serial_numbers,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ActorID       string     `json:"actor_id"`
	ReceivedAt    time.Time  `json:"received_at"`
	Remark        string     `json:"remark,omitempty"`
}

// ApprovalLevelResponse describes one rung of the configured ladder
type ApprovalLevelResponse struct {
	Level     int              `json:"level"`
	Name      string           `json:"name"`
	Approvers []string         `json:"approvers"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

// AvailableActionsResponse lists what the caller may do next
type AvailableActionsResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
	Version int       `json:"version"`
	Actions []string  `json:"actions"`
}

// ToPurchaseOrderResponse converts domain PurchaseOrder to response DTO.
// Totals and ledger counters are re-derived so drift shows up in the snapshot.
func ToPurchaseOrderResponse(order *trade.PurchaseOrder, ladder *trade.ApprovalLadder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(order.Items))
	for i := range order.Items {
		items[i] = ToPurchaseOrderItemResponse(&order.Items[i])
	}
	history := make([]ApprovalRecordResponse, len(order.ApprovalHistory))
	for i, record := range order.ApprovalHistory {
		history[i] = ApprovalRecordResponse{
			Level:      record.Level,
			Action:     string(record.Action),
			ActorID:    record.ActorID,
			Comment:    record.Comment,
			OccurredAt: record.OccurredAt,
		}
	}
	receipts := make([]ReceivingEventResponse, len(order.Receipts))
	for i, event := range order.Receipts {
		receipts[i] = ReceivingEventResponse{
			ID:            event.ID,
			LineID:        event.LineID,
			Quantity:      event.Quantity,
			Condition:     string(event.Condition),
			LotNumber:     event.LotNumber,
			SerialNumbers: event.SerialNumbers,
			ExpiresAt:     event.ExpiresAt,
			ActorID:       event.ActorID,
			ReceivedAt:    event.ReceivedAt,
			Remark:        event.Remark,
		}
	}

	_, totalsConsistent, err := order.VerifyTotals()
	if err != nil {
		totalsConsistent = false
	}

	resp := PurchaseOrderResponse{
		ID:                   order.ID,
		TenantID:             order.TenantID,
		OrderNumber:          order.OrderNumber,
		Status:               string(order.Status()),
		SupplierID:           order.SupplierID,
		SupplierName:         order.SupplierName,
		WarehouseID:          order.WarehouseID,
		ExpectedDeliveryDate: order.ExpectedDeliveryDate,
		Currency:             string(order.Currency),
		Items:                items,
		ItemCount:            order.ItemCount(),
		Subtotal:             order.Subtotal.Amount(),
		DiscountTotal:        order.DiscountTotal.Amount(),
		TaxTotal:             order.TaxTotal.Amount(),
		Total:                order.Total.Amount(),
		TotalsConsistent:     totalsConsistent,
		LedgerConsistent:     len(trade.ReceivingLedger{}.Reconcile(order)) == 0,
		CurrentApprovalLevel: order.CurrentApprovalLevel,
		ApprovalHistory:      history,
		Receipts:             receipts,
		PaymentTerms:         order.PaymentTerms,
		ShippingMethod:       order.ShippingMethod,
		ShippingAddress:      order.ShippingAddress,
		Remark:               order.Remark,
		SubmittedAt:          order.SubmittedAt,
		ApprovedAt:           order.ApprovedAt,
		RejectedAt:           order.RejectedAt,
		RejectReason:         order.RejectReason,
		DispatchedAt:         order.DispatchedAt,
		CancelledAt:          order.CancelledAt,
		CancelReason:         order.CancelReason,
		ClosedAt:             order.ClosedAt,
		CreatedBy:            order.CreatedBy,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
		Version:              order.Version,
	}
	if ladder != nil && order.Status().IsAwaitingApproval() {
		if next, ok := ladder.NextLevelFor(order); ok {
			level := next.Level
			resp.NextApprovalLevel = &level
		}
	}
	return resp
}

// ToPurchaseOrderItemResponse converts a domain line to response DTO
func ToPurchaseOrderItemResponse(item *trade.OrderLineItem) PurchaseOrderItemResponse {
	amounts := item.Amounts()
	return PurchaseOrderItemResponse{
		ID:                item.ID,
		ProductID:         item.ProductID,
		ProductCode:       item.ProductCode,
		ProductName:       item.ProductName,
		Unit:              item.Unit,
		OrderedQuantity:   item.OrderedQuantity,
		ReceivedQuantity:  item.ReceivedQuantity,
		DamagedQuantity:   item.DamagedQuantity,
		RejectedQuantity:  item.RejectedQuantity,
		RemainingQuantity: item.RemainingQuantity(),
		UnitPrice:         item.UnitPrice.Amount(),
		DiscountPercent:   item.DiscountPercent,
		TaxPercent:        item.TaxPercent,
		Subtotal:          amounts.Subtotal.Amount(),
		DiscountAmount:    amounts.Discount.Amount(),
		TaxAmount:         amounts.Tax.Amount(),
		Total:             amounts.Total.Amount(),
		TrackingMode:      string(item.TrackingMode),
		Remark:            item.Remark,
	}
}

// ToPurchaseOrderListItemResponse converts domain PurchaseOrder to list response DTO
func ToPurchaseOrderListItemResponse(order *trade.PurchaseOrder) PurchaseOrderListItemResponse {
	return PurchaseOrderListItemResponse{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		Status:               string(order.Status()),
		SupplierID:           order.SupplierID,
		SupplierName:         order.SupplierName,
		WarehouseID:          order.WarehouseID,
		Currency:             string(order.Currency),
		Total:                order.Total.Amount(),
		ItemCount:            order.ItemCount(),
		CurrentApprovalLevel: order.CurrentApprovalLevel,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
		Version:              order.Version,
	}
}

// ToPurchaseOrderListItemResponses converts a slice of domain orders to list responses
func ToPurchaseOrderListItemResponses(orders []*trade.PurchaseOrder) []PurchaseOrderListItemResponse {
	responses := make([]PurchaseOrderListItemResponse, len(orders))
	for i, order := range orders {
		responses[i] = ToPurchaseOrderListItemResponse(order)
	}
	return responses
}

// ToApprovalLevelResponses converts the configured ladder to response DTOs
func ToApprovalLevelResponses(ladder *trade.ApprovalLadder) []ApprovalLevelResponse {
	levels := ladder.Levels()
	responses := make([]ApprovalLevelResponse, len(levels))
	for i, level := range levels {
		responses[i] = ApprovalLevelResponse{
			Level:     level.Level,
			Name:      level.Name,
			Approvers: level.Approvers,
			MinAmount: level.MinAmount,
			MaxAmount: level.MaxAmount,
		}
	}
	return responses
}
