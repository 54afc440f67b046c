package event

import (
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
)

// RegisterPurchaseOrderEvents registers every purchase order event with the serializer.
// The outbox processor cannot replay an event type that is missing here.
func RegisterPurchaseOrderEvents(serializer *EventSerializer) {
	serializer.Register(trade.EventTypePurchaseOrderCreated, func() shared.DomainEvent { return &trade.PurchaseOrderCreatedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderSubmitted, func() shared.DomainEvent { return &trade.PurchaseOrderSubmittedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderApproved, func() shared.DomainEvent { return &trade.PurchaseOrderApprovedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderRejected, func() shared.DomainEvent { return &trade.PurchaseOrderRejectedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderDispatched, func() shared.DomainEvent { return &trade.PurchaseOrderDispatchedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderItemsReceived, func() shared.DomainEvent { return &trade.PurchaseOrderItemsReceivedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderFullyReceived, func() shared.DomainEvent { return &trade.PurchaseOrderFullyReceivedEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderCancelled, func() shared.DomainEvent { return &trade.PurchaseOrderCancelledEvent{} })
	serializer.Register(trade.EventTypePurchaseOrderClosed, func() shared.DomainEvent { return &trade.PurchaseOrderClosedEvent{} })
}

// NewPurchaseOrderSerializer returns a serializer that knows every purchase order event
func NewPurchaseOrderSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterPurchaseOrderEvents(s)
	return s
}
