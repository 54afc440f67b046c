package trade

import (
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePurchaseOrderCreated       = "PurchaseOrderCreated"
	EventTypePurchaseOrderSubmitted     = "PurchaseOrderSubmitted"
	EventTypePurchaseOrderApproved      = "PurchaseOrderApproved"
	EventTypePurchaseOrderRejected      = "PurchaseOrderRejected"
	EventTypePurchaseOrderDispatched    = "PurchaseOrderDispatched"
	EventTypePurchaseOrderItemsReceived = "PurchaseOrderItemsReceived"
	EventTypePurchaseOrderFullyReceived = "PurchaseOrderFullyReceived"
	EventTypePurchaseOrderCancelled     = "PurchaseOrderCancelled"
	EventTypePurchaseOrderClosed        = "PurchaseOrderClosed"
)

func newOrderEvent(eventType string, order *PurchaseOrder, at time.Time) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypePurchaseOrder, order.ID, order.TenantID, at)
}

// PurchaseOrderCreatedEvent is raised when a new purchase order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	CreatedBy    string    `json:"created_by"`
}

// NewPurchaseOrderCreatedEvent creates a new PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder, at time.Time) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderCreated, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		CreatedBy:       order.CreatedBy,
	}
}

// PurchaseOrderSubmittedEvent is raised when an order enters the approval ladder
type PurchaseOrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	RequiredLevels []int           `json:"required_levels"`
	SubmittedBy    string          `json:"submitted_by"`
	Status         string          `json:"status"`
}

// NewPurchaseOrderSubmittedEvent creates a new PurchaseOrderSubmittedEvent
func NewPurchaseOrderSubmittedEvent(order *PurchaseOrder, required []ApprovalLevel, actorID string, at time.Time) *PurchaseOrderSubmittedEvent {
	levels := make([]int, len(required))
	for i, level := range required {
		levels[i] = level.Level
	}
	return &PurchaseOrderSubmittedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderSubmitted, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		TotalAmount:     order.Total.Amount(),
		Currency:        string(order.Currency),
		RequiredLevels:  levels,
		SubmittedBy:     actorID,
		Status:          string(order.Status()),
	}
}

// PurchaseOrderApprovedEvent is raised for every level that approves the order
type PurchaseOrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Level         int       `json:"level"`
	ApprovedBy    string    `json:"approved_by"`
	Comment       string    `json:"comment,omitempty"`
	FullyApproved bool      `json:"fully_approved"`
	NextLevel     int       `json:"next_level,omitempty"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"created_by"`
}

// NewPurchaseOrderApprovedEvent creates a new PurchaseOrderApprovedEvent.
// nextLevel is 0 once the order is fully approved.
func NewPurchaseOrderApprovedEvent(order *PurchaseOrder, record ApprovalRecord, nextLevel int) *PurchaseOrderApprovedEvent {
	return &PurchaseOrderApprovedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderApproved, order, record.OccurredAt),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Level:           record.Level,
		ApprovedBy:      record.ActorID,
		Comment:         record.Comment,
		FullyApproved:   order.ApprovedAt != nil,
		NextLevel:       nextLevel,
		Status:          string(order.Status()),
		CreatedBy:       order.CreatedBy,
	}
}

// PurchaseOrderRejectedEvent is raised when an approver rejects the order
type PurchaseOrderRejectedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Level       int       `json:"level"`
	RejectedBy  string    `json:"rejected_by"`
	Reason      string    `json:"reason"`
	CreatedBy   string    `json:"created_by"`
}

// NewPurchaseOrderRejectedEvent creates a new PurchaseOrderRejectedEvent
func NewPurchaseOrderRejectedEvent(order *PurchaseOrder, record ApprovalRecord) *PurchaseOrderRejectedEvent {
	return &PurchaseOrderRejectedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderRejected, order, record.OccurredAt),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Level:           record.Level,
		RejectedBy:      record.ActorID,
		Reason:          record.Comment,
		CreatedBy:       order.CreatedBy,
	}
}

// PurchaseOrderDispatchedEvent is raised when the order is sent to the supplier
type PurchaseOrderDispatchedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	WarehouseID  *uuid.UUID      `json:"warehouse_id,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DispatchedBy string          `json:"dispatched_by"`
}

// NewPurchaseOrderDispatchedEvent creates a new PurchaseOrderDispatchedEvent
func NewPurchaseOrderDispatchedEvent(order *PurchaseOrder, actorID string, at time.Time) *PurchaseOrderDispatchedEvent {
	return &PurchaseOrderDispatchedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderDispatched, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		WarehouseID:     order.WarehouseID,
		TotalAmount:     order.Total.Amount(),
		DispatchedBy:    actorID,
	}
}

// ReceivedLineInfo describes one ledger entry in an event
type ReceivedLineInfo struct {
	LineID        uuid.UUID `json:"line_id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductCode   string    `json:"product_code"`
	Quantity      int64     `json:"quantity"`
	Condition     string    `json:"condition"`
	LotNumber     string    `json:"lot_number,omitempty"`
	SerialNumbers []string  `json:"serial_numbers,omitempty"`
}

// PurchaseOrderItemsReceivedEvent is raised for every applied receiving batch
type PurchaseOrderItemsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	WarehouseID *uuid.UUID         `json:"warehouse_id,omitempty"`
	Lines       []ReceivedLineInfo `json:"lines"`
	ReceivedBy  string             `json:"received_by"`
	Status      string             `json:"status"`
}

// NewPurchaseOrderItemsReceivedEvent creates a new PurchaseOrderItemsReceivedEvent
func NewPurchaseOrderItemsReceivedEvent(order *PurchaseOrder, entries []ReceivingEvent, actorID string, at time.Time) *PurchaseOrderItemsReceivedEvent {
	lines := make([]ReceivedLineInfo, len(entries))
	for i, entry := range entries {
		info := ReceivedLineInfo{
			LineID:        entry.LineID,
			Quantity:      entry.Quantity,
			Condition:     string(entry.Condition),
			LotNumber:     entry.LotNumber,
			SerialNumbers: entry.SerialNumbers,
		}
		if item := order.GetItem(entry.LineID); item != nil {
			info.ProductID = item.ProductID
			info.ProductCode = item.ProductCode
		}
		lines[i] = info
	}
	return &PurchaseOrderItemsReceivedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderItemsReceived, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		WarehouseID:     order.WarehouseID,
		Lines:           lines,
		ReceivedBy:      actorID,
		Status:          string(order.Status()),
	}
}

// PurchaseOrderFullyReceivedEvent is raised when the last outstanding unit arrives
type PurchaseOrderFullyReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CreatedBy   string    `json:"created_by"`
}

// NewPurchaseOrderFullyReceivedEvent creates a new PurchaseOrderFullyReceivedEvent
func NewPurchaseOrderFullyReceivedEvent(order *PurchaseOrder, at time.Time) *PurchaseOrderFullyReceivedEvent {
	return &PurchaseOrderFullyReceivedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderFullyReceived, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		CreatedBy:       order.CreatedBy,
	}
}

// PurchaseOrderCancelledEvent is raised when a purchase order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	FromStatus   string    `json:"from_status"`
	CancelledBy  string    `json:"cancelled_by"`
	CancelReason string    `json:"cancel_reason"`
}

// NewPurchaseOrderCancelledEvent creates a new PurchaseOrderCancelledEvent
func NewPurchaseOrderCancelledEvent(order *PurchaseOrder, from PurchaseOrderStatus, actorID string, at time.Time) *PurchaseOrderCancelledEvent {
	return &PurchaseOrderCancelledEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderCancelled, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		FromStatus:      string(from),
		CancelledBy:     actorID,
		CancelReason:    order.CancelReason,
	}
}

// PurchaseOrderClosedEvent is raised when a received order is finalized
type PurchaseOrderClosedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ClosedBy    string          `json:"closed_by"`
}

// NewPurchaseOrderClosedEvent creates a new PurchaseOrderClosedEvent
func NewPurchaseOrderClosedEvent(order *PurchaseOrder, actorID string, at time.Time) *PurchaseOrderClosedEvent {
	return &PurchaseOrderClosedEvent{
		BaseDomainEvent: newOrderEvent(EventTypePurchaseOrderClosed, order, at),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		TotalAmount:     order.Total.Amount(),
		ClosedBy:        actorID,
	}
}
