package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
// Status is a denormalized copy of order.Status() kept for filtering and metrics.
type PurchaseOrderModel struct {
	AggregateColumns
	OrderNumber          string                     `gorm:"type:varchar(50);not null;index"`
	SupplierID           uuid.UUID                  `gorm:"type:uuid;not null;index"`
	SupplierName         string                     `gorm:"type:varchar(200);not null"`
	WarehouseID          *uuid.UUID                 `gorm:"type:uuid;index"`
	ExpectedDeliveryDate *time.Time
	Currency             string                     `gorm:"type:varchar(3);not null"`
	Subtotal             decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotal        decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal             decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	Total                decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	Status               trade.PurchaseOrderStatus  `gorm:"type:varchar(30);not null;default:'draft';index"`
	CurrentApprovalLevel int                        `gorm:"not null;default:0"`
	PaymentTerms         string                     `gorm:"type:varchar(200)"`
	ShippingMethod       string                     `gorm:"type:varchar(100)"`
	ShippingAddress      string                     `gorm:"type:text"`
	Remark               string                     `gorm:"type:text"`
	SubmittedAt          *time.Time
	SubmittedBy          string `gorm:"type:varchar(100)"`
	ApprovedAt           *time.Time
	RejectedAt           *time.Time
	RejectReason         string `gorm:"type:varchar(500)"`
	DispatchedAt         *time.Time
	DispatchedBy         string `gorm:"type:varchar(100)"`
	CancelledAt          *time.Time
	CancelReason         string `gorm:"type:varchar(500)"`
	ClosedAt             *time.Time
	Items                []PurchaseOrderItemModel     `gorm:"foreignKey:OrderID;references:ID"`
	Approvals            []PurchaseOrderApprovalModel `gorm:"foreignKey:OrderID;references:ID"`
	Receipts             []PurchaseOrderReceiptModel  `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
// Child rows must be preloaded; they are ordered by the caller.
func (m *PurchaseOrderModel) ToDomain() *trade.PurchaseOrder {
	currency := valueobject.Currency(m.Currency)
	order := &trade.PurchaseOrder{
		TenantAggregateRoot:  m.root(),
		OrderNumber:          m.OrderNumber,
		SupplierID:           m.SupplierID,
		SupplierName:         m.SupplierName,
		WarehouseID:          m.WarehouseID,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		Currency:             currency,
		Subtotal:             valueobject.MustMoney(m.Subtotal, currency),
		DiscountTotal:        valueobject.MustMoney(m.DiscountTotal, currency),
		TaxTotal:             valueobject.MustMoney(m.TaxTotal, currency),
		Total:                valueobject.MustMoney(m.Total, currency),
		CurrentApprovalLevel: m.CurrentApprovalLevel,
		PaymentTerms:         m.PaymentTerms,
		ShippingMethod:       m.ShippingMethod,
		ShippingAddress:      m.ShippingAddress,
		Remark:               m.Remark,
		SubmittedAt:          m.SubmittedAt,
		SubmittedBy:          m.SubmittedBy,
		ApprovedAt:           m.ApprovedAt,
		RejectedAt:           m.RejectedAt,
		RejectReason:         m.RejectReason,
		DispatchedAt:         m.DispatchedAt,
		DispatchedBy:         m.DispatchedBy,
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
		ClosedAt:             m.ClosedAt,
		Items:                make([]trade.OrderLineItem, len(m.Items)),
		ApprovalHistory:      make([]trade.ApprovalRecord, len(m.Approvals)),
		Receipts:             make([]trade.ReceivingEvent, len(m.Receipts)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain(currency)
	}
	for i := range m.Approvals {
		order.ApprovalHistory[i] = m.Approvals[i].ToDomain()
	}
	for i := range m.Receipts {
		order.Receipts[i] = m.Receipts[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(o *trade.PurchaseOrder) {
	m.AggregateColumns = aggregateColumnsOf(o.TenantAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierID = o.SupplierID
	m.SupplierName = o.SupplierName
	m.WarehouseID = o.WarehouseID
	m.ExpectedDeliveryDate = o.ExpectedDeliveryDate
	m.Currency = string(o.Currency)
	m.Subtotal = o.Subtotal.Amount()
	m.DiscountTotal = o.DiscountTotal.Amount()
	m.TaxTotal = o.TaxTotal.Amount()
	m.Total = o.Total.Amount()
	m.Status = o.Status()
	m.CurrentApprovalLevel = o.CurrentApprovalLevel
	m.PaymentTerms = o.PaymentTerms
	m.ShippingMethod = o.ShippingMethod
	m.ShippingAddress = o.ShippingAddress
	m.Remark = o.Remark
	m.SubmittedAt = o.SubmittedAt
	m.SubmittedBy = o.SubmittedBy
	m.ApprovedAt = o.ApprovedAt
	m.RejectedAt = o.RejectedAt
	m.RejectReason = o.RejectReason
	m.DispatchedAt = o.DispatchedAt
	m.DispatchedBy = o.DispatchedBy
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.ClosedAt = o.ClosedAt

	m.Items = make([]PurchaseOrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
		m.Items[i].OrderID = o.ID
		m.Items[i].Position = i
	}
	m.Approvals = make([]PurchaseOrderApprovalModel, len(o.ApprovalHistory))
	for i := range o.ApprovalHistory {
		m.Approvals[i].FromDomain(&o.ApprovalHistory[i])
		m.Approvals[i].OrderID = o.ID
	}
	m.Receipts = make([]PurchaseOrderReceiptModel, len(o.Receipts))
	for i := range o.Receipts {
		m.Receipts[i].FromDomain(&o.Receipts[i])
		m.Receipts[i].OrderID = o.ID
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *trade.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderItemModel is the persistence model for an order line
type PurchaseOrderItemModel struct {
	RowColumns
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position         int             `gorm:"not null;default:0"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	ProductCode      string          `gorm:"type:varchar(50)"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	Unit             string          `gorm:"type:varchar(20)"`
	OrderedQuantity  int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TaxPercent       decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TrackingMode     string          `gorm:"type:varchar(10);not null;default:'none'"`
	ReceivedQuantity int64           `gorm:"not null;default:0"`
	DamagedQuantity  int64           `gorm:"not null;default:0"`
	RejectedQuantity int64           `gorm:"not null;default:0"`
	Remark           string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the row to a line priced in the order currency
func (m *PurchaseOrderItemModel) ToDomain(currency valueobject.Currency) trade.OrderLineItem {
	return trade.OrderLineItem{
		ID:               m.ID,
		OrderID:          m.OrderID,
		ProductID:        m.ProductID,
		ProductCode:      m.ProductCode,
		ProductName:      m.ProductName,
		Unit:             m.Unit,
		OrderedQuantity:  m.OrderedQuantity,
		UnitPrice:        valueobject.MustMoney(m.UnitPrice, currency),
		DiscountPercent:  m.DiscountPercent,
		TaxPercent:       m.TaxPercent,
		TrackingMode:     trade.TrackingMode(m.TrackingMode),
		ReceivedQuantity: m.ReceivedQuantity,
		DamagedQuantity:  m.DamagedQuantity,
		RejectedQuantity: m.RejectedQuantity,
		Remark:           m.Remark,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the row from a domain line
func (m *PurchaseOrderItemModel) FromDomain(i *trade.OrderLineItem) {
	m.RowColumns = RowColumns{ID: i.ID, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt}
	m.OrderID = i.OrderID
	m.ProductID = i.ProductID
	m.ProductCode = i.ProductCode
	m.ProductName = i.ProductName
	m.Unit = i.Unit
	m.OrderedQuantity = i.OrderedQuantity
	m.UnitPrice = i.UnitPrice.Amount()
	m.DiscountPercent = i.DiscountPercent
	m.TaxPercent = i.TaxPercent
	m.TrackingMode = string(i.TrackingMode)
	m.ReceivedQuantity = i.ReceivedQuantity
	m.DamagedQuantity = i.DamagedQuantity
	m.RejectedQuantity = i.RejectedQuantity
	m.Remark = i.Remark
}

// PurchaseOrderApprovalModel is one append-only approval history row
type PurchaseOrderApprovalModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Level      int       `gorm:"not null"`
	Action     string    `gorm:"type:varchar(20);not null"`
	ActorID    string    `gorm:"type:varchar(100);not null"`
	Comment    string    `gorm:"type:varchar(500)"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PurchaseOrderApprovalModel) TableName() string {
	return "purchase_order_approvals"
}

func (m *PurchaseOrderApprovalModel) ToDomain() trade.ApprovalRecord {
	return trade.ApprovalRecord{
		ID:         m.ID,
		OrderID:    m.OrderID,
		Level:      m.Level,
		Action:     trade.ApprovalAction(m.Action),
		ActorID:    m.ActorID,
		Comment:    m.Comment,
		OccurredAt: m.OccurredAt,
	}
}

func (m *PurchaseOrderApprovalModel) FromDomain(r *trade.ApprovalRecord) {
	m.ID = r.ID
	m.OrderID = r.OrderID
	m.Level = r.Level
	m.Action = string(r.Action)
	m.ActorID = r.ActorID
	m.Comment = r.Comment
	m.OccurredAt = r.OccurredAt
}

// PurchaseOrderReceiptModel is one append-only receiving ledger row
type PurchaseOrderReceiptModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	LineID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Quantity      int64      `gorm:"not null"`
	Condition     string     `gorm:"type:varchar(20);not null"`
	LotNumber     string     `gorm:"type:varchar(100)"`
	SerialNumbers StringList `gorm:"type:text"`
	ExpiresAt     *time.Time
	ActorID       string    `gorm:"type:varchar(100);not null"`
	ReceivedAt    time.Time `gorm:"not null;index"`
	Remark        string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseOrderReceiptModel) TableName() string {
	return "purchase_order_receipts"
}

func (m *PurchaseOrderReceiptModel) ToDomain() trade.ReceivingEvent {
	return trade.ReceivingEvent{
		ID:            m.ID,
		OrderID:       m.OrderID,
		LineID:        m.LineID,
		Quantity:      m.Quantity,
		Condition:     trade.ReceiptCondition(m.Condition),
		LotNumber:     m.LotNumber,
		SerialNumbers: slices.Clone([]string(m.SerialNumbers)),
		ExpiresAt:     m.ExpiresAt,
		ActorID:       m.ActorID,
		ReceivedAt:    m.ReceivedAt,
		Remark:        m.Remark,
	}
}

func (m *PurchaseOrderReceiptModel) FromDomain(e *trade.ReceivingEvent) {
	m.ID = e.ID
	m.OrderID = e.OrderID
	m.LineID = e.LineID
	m.Quantity = e.Quantity
	m.Condition = string(e.Condition)
	m.LotNumber = e.LotNumber
	m.SerialNumbers = StringList(slices.Clone(e.SerialNumbers))
	m.ExpiresAt = e.ExpiresAt
	m.ActorID = e.ActorID
	m.ReceivedAt = e.ReceivedAt
	m.Remark = e.Remark
}

// StringList stores a string slice as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}
