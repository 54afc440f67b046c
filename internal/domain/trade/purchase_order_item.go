package trade

import (
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrackingMode says which identifiers a line needs on receipt
type TrackingMode string

const (
	TrackingModeNone   TrackingMode = "none"
	TrackingModeLot    TrackingMode = "lot"
	TrackingModeSerial TrackingMode = "serial"
)

// IsValid checks if the tracking mode is known
func (m TrackingMode) IsValid() bool {
	switch m {
	case TrackingModeNone, TrackingModeLot, TrackingModeSerial:
		return true
	}
	return false
}

// OrderLineItem is one product line of a purchase order.
// ReceivedQuantity, DamagedQuantity and RejectedQuantity are only changed by ReceivingLedger.
type OrderLineItem struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductID        uuid.UUID
	ProductCode      string
	ProductName      string
	Unit             string
	OrderedQuantity  int64
	UnitPrice        valueobject.Money
	DiscountPercent  decimal.Decimal
	TaxPercent       decimal.Decimal
	TrackingMode     TrackingMode
	ReceivedQuantity int64
	DamagedQuantity  int64
	RejectedQuantity int64
	Remark           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Amounts prices the line with the calculator
func (i *OrderLineItem) Amounts() LineAmounts {
	return ComputeLine(i.OrderedQuantity, i.UnitPrice, i.DiscountPercent, i.TaxPercent)
}

// RemainingQuantity returns the quantity still expected from the supplier
func (i *OrderLineItem) RemainingQuantity() int64 {
	return i.OrderedQuantity - i.ReceivedQuantity
}

// IsFullyReceived reports whether nothing remains outstanding
func (i *OrderLineItem) IsFullyReceived() bool {
	return i.ReceivedQuantity >= i.OrderedQuantity
}

// LineItemInput carries the editable fields of a line
type LineItemInput struct {
	ProductID       uuid.UUID
	ProductCode     string
	ProductName     string
	Unit            string
	Quantity        int64
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
	TrackingMode    TrackingMode
	Remark          string
}

// Validate checks the input independently of any order
func (in LineItemInput) Validate() error {
	if in.ProductID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Product ID cannot be empty")
	}
	if strings.TrimSpace(in.ProductCode) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Product code cannot be empty")
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Product name cannot be empty")
	}
	if in.Quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Unit price cannot be negative")
	}
	if !isPercent(in.DiscountPercent) {
		return shared.NewDomainError(shared.CodeValidation, "Discount percent must be between 0 and 100")
	}
	if !isPercent(in.TaxPercent) {
		return shared.NewDomainError(shared.CodeValidation, "Tax percent must be between 0 and 100")
	}
	if !fitsScale(in.UnitPrice) || !fitsScale(in.DiscountPercent) || !fitsScale(in.TaxPercent) {
		return shared.NewDomainErrorf(shared.CodeValidation,
			"Unit price and percentages allow at most %d decimal places", AmountScale)
	}
	if in.TrackingMode != "" && !in.TrackingMode.IsValid() {
		return shared.NewDomainErrorf(shared.CodeValidation, "Unknown tracking mode %q", in.TrackingMode)
	}
	return nil
}

func isPercent(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundred)
}

func newOrderLineItem(orderID uuid.UUID, currency valueobject.Currency, in LineItemInput, at time.Time) (*OrderLineItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	price, err := valueobject.NewMoney(in.UnitPrice, currency)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, err.Error())
	}
	item := &OrderLineItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		UnitPrice: price,
		CreatedAt: at,
	}
	item.apply(in, at)
	return item, nil
}

func (i *OrderLineItem) apply(in LineItemInput, at time.Time) {
	mode := in.TrackingMode
	if mode == "" {
		mode = TrackingModeNone
	}
	i.ProductID = in.ProductID
	i.ProductCode = strings.TrimSpace(in.ProductCode)
	i.ProductName = strings.TrimSpace(in.ProductName)
	i.Unit = in.Unit
	i.OrderedQuantity = in.Quantity
	i.UnitPrice = valueobject.MustMoney(in.UnitPrice, i.UnitPrice.Currency())
	i.DiscountPercent = in.DiscountPercent
	i.TaxPercent = in.TaxPercent
	i.TrackingMode = mode
	i.Remark = in.Remark
	i.UpdatedAt = at
}
