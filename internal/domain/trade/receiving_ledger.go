package trade

import (
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceiptCondition classifies received units
type ReceiptCondition string

const (
	ReceiptConditionGood     ReceiptCondition = "good"
	ReceiptConditionDamaged  ReceiptCondition = "damaged"
	ReceiptConditionRejected ReceiptCondition = "rejected"
)

// IsValid checks if the condition is known
func (c ReceiptCondition) IsValid() bool {
	switch c {
	case ReceiptConditionGood, ReceiptConditionDamaged, ReceiptConditionRejected:
		return true
	}
	return false
}

// CountsAsReceived reports whether units in this condition close out ordered quantity.
// Rejected units are sent back and leave the line open for re-delivery.
func (c ReceiptCondition) CountsAsReceived() bool {
	return c != ReceiptConditionRejected
}

// ReceiptLine is one entry of a receiving batch
type ReceiptLine struct {
	LineID        uuid.UUID
	Quantity      int64
	Condition     ReceiptCondition
	LotNumber     string
	SerialNumbers []string
	ExpiresAt     *time.Time
	Remark        string
}

func (r ReceiptLine) condition() ReceiptCondition {
	if r.Condition == "" {
		return ReceiptConditionGood
	}
	return r.Condition
}

// Validate checks the shape of the entry without looking at the order
func (r ReceiptLine) Validate() error {
	if r.LineID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Receipt line ID cannot be empty")
	}
	if r.Quantity <= 0 {
		return shared.NewDomainErrorf(shared.CodeValidation, "Receipt quantity for line %s must be positive", r.LineID)
	}
	if !r.condition().IsValid() {
		return shared.NewDomainErrorf(shared.CodeValidation, "Unknown receipt condition %q", r.Condition)
	}
	seen := make(map[string]struct{}, len(r.SerialNumbers))
	for _, serial := range r.SerialNumbers {
		serial = strings.TrimSpace(serial)
		if serial == "" {
			return shared.NewDomainError(shared.CodeValidation, "Serial numbers cannot be blank")
		}
		if _, dup := seen[serial]; dup {
			return shared.NewDomainErrorf(shared.CodeValidation, "Serial number %s appears twice", serial)
		}
		seen[serial] = struct{}{}
	}
	return nil
}

// ReceivingEvent is an immutable ledger entry for goods that arrived
type ReceivingEvent struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	LineID        uuid.UUID
	Quantity      int64
	Condition     ReceiptCondition
	LotNumber     string
	SerialNumbers []string
	ExpiresAt     *time.Time
	ActorID       string
	ReceivedAt    time.Time
	Remark        string
}

// LineDiscrepancy reports a line whose counters disagree with its ledger entries
type LineDiscrepancy struct {
	LineID           uuid.UUID
	RecordedReceived int64
	LedgerReceived   int64
	RecordedDamaged  int64
	LedgerDamaged    int64
	RecordedRejected int64
	LedgerRejected   int64
}

// ReceivingLedger applies receipts to an order and keeps the per-line counters
// consistent with the append-only event list.
type ReceivingLedger struct{}

// Apply validates the whole batch and then records it.
// Either every receipt is applied or none is.
func (ReceivingLedger) Apply(order *PurchaseOrder, receipts []ReceiptLine, actorID string, at time.Time) ([]ReceivingEvent, error) {
	if len(receipts) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "At least one receipt is required")
	}

	consumed := make(map[uuid.UUID]int64, len(receipts))
	serials := make(map[uuid.UUID]map[string]struct{})
	for _, receipt := range receipts {
		if err := receipt.Validate(); err != nil {
			return nil, err
		}
		line := order.GetItem(receipt.LineID)
		if line == nil {
			return nil, shared.NewDomainErrorf(shared.CodeValidation, "Line %s is not on order %s", receipt.LineID, order.OrderNumber)
		}
		switch line.TrackingMode {
		case TrackingModeLot:
			if strings.TrimSpace(receipt.LotNumber) == "" {
				return nil, shared.NewDomainErrorf(shared.CodeValidation, "Line %s is lot-tracked and needs a lot number", line.ProductCode)
			}
		case TrackingModeSerial:
			if int64(len(receipt.SerialNumbers)) != receipt.Quantity {
				return nil, shared.NewDomainErrorf(shared.CodeValidation,
					"Line %s is serial-tracked: got %d serial numbers for quantity %d", line.ProductCode, len(receipt.SerialNumbers), receipt.Quantity)
			}
			known, ok := serials[line.ID]
			if !ok {
				known = recordedSerials(order, line.ID)
				serials[line.ID] = known
			}
			for _, serial := range receipt.SerialNumbers {
				serial = strings.TrimSpace(serial)
				if _, dup := known[serial]; dup {
					return nil, shared.NewDomainErrorf(shared.CodeValidation,
						"Serial number %s was already received on line %s", serial, line.ProductCode)
				}
				known[serial] = struct{}{}
			}
		}

		remaining := line.RemainingQuantity() - consumed[line.ID]
		if receipt.Quantity > remaining {
			return nil, shared.NewDomainErrorf(shared.CodeOverReceipt,
				"Cannot receive %d of %s: only %d remaining", receipt.Quantity, line.ProductCode, remaining)
		}
		consumed[line.ID] += receipt.Quantity
	}

	events := make([]ReceivingEvent, 0, len(receipts))
	for _, receipt := range receipts {
		line := order.GetItem(receipt.LineID)
		condition := receipt.condition()
		switch condition {
		case ReceiptConditionGood:
			line.ReceivedQuantity += receipt.Quantity
		case ReceiptConditionDamaged:
			line.ReceivedQuantity += receipt.Quantity
			line.DamagedQuantity += receipt.Quantity
		case ReceiptConditionRejected:
			line.RejectedQuantity += receipt.Quantity
		}
		line.UpdatedAt = at

		event := ReceivingEvent{
			ID:            uuid.New(),
			OrderID:       order.ID,
			LineID:        line.ID,
			Quantity:      receipt.Quantity,
			Condition:     condition,
			LotNumber:     strings.TrimSpace(receipt.LotNumber),
			SerialNumbers: append([]string(nil), receipt.SerialNumbers...),
			ExpiresAt:     receipt.ExpiresAt,
			ActorID:       actorID,
			ReceivedAt:    at,
			Remark:        receipt.Remark,
		}
		order.Receipts = append(order.Receipts, event)
		events = append(events, event)
	}
	return events, nil
}

// recordedSerials collects the serials a line already holds.
// Rejected units went back to the supplier, so their serials may arrive again.
func recordedSerials(order *PurchaseOrder, lineID uuid.UUID) map[string]struct{} {
	known := make(map[string]struct{})
	for _, event := range order.Receipts {
		if event.LineID != lineID || !event.Condition.CountsAsReceived() {
			continue
		}
		for _, serial := range event.SerialNumbers {
			known[strings.TrimSpace(serial)] = struct{}{}
		}
	}
	return known
}

// Reconcile re-sums the ledger per line and returns every line whose counters disagree
func (ReceivingLedger) Reconcile(order *PurchaseOrder) []LineDiscrepancy {
	type sums struct{ received, damaged, rejected int64 }
	totals := make(map[uuid.UUID]*sums, len(order.Items))
	for _, event := range order.Receipts {
		s, ok := totals[event.LineID]
		if !ok {
			s = &sums{}
			totals[event.LineID] = s
		}
		if event.Condition.CountsAsReceived() {
			s.received += event.Quantity
		}
		switch event.Condition {
		case ReceiptConditionDamaged:
			s.damaged += event.Quantity
		case ReceiptConditionRejected:
			s.rejected += event.Quantity
		}
	}

	var discrepancies []LineDiscrepancy
	for i := range order.Items {
		line := &order.Items[i]
		s := totals[line.ID]
		if s == nil {
			s = &sums{}
		}
		if s.received != line.ReceivedQuantity || s.damaged != line.DamagedQuantity || s.rejected != line.RejectedQuantity {
			discrepancies = append(discrepancies, LineDiscrepancy{
				LineID:           line.ID,
				RecordedReceived: line.ReceivedQuantity,
				LedgerReceived:   s.received,
				RecordedDamaged:  line.DamagedQuantity,
				LedgerDamaged:    s.damaged,
				RecordedRejected: line.RejectedQuantity,
				LedgerRejected:   s.rejected,
			})
		}
	}
	return discrepancies
}
