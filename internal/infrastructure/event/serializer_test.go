package event

import (
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubmittedOrder(t *testing.T) *trade.PurchaseOrder {
	t.Helper()
	order, err := trade.NewPurchaseOrder(uuid.New(), "PO-2026-00001", uuid.New(), "Acme Supplies", valueobject.EUR, "alice")
	require.NoError(t, err)
	warehouseID := uuid.New()
	order.WarehouseID = &warehouseID
	_, err = order.AddItem(trade.LineItemInput{
		ProductID:   uuid.New(),
		ProductCode: "SKU-1",
		ProductName: "Widget",
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	ladder := trade.MustApprovalLadder([]trade.ApprovalLevel{{Level: 1, Name: "manager", Approvers: []string{"mgr"}}})
	require.NoError(t, order.Submit(ladder, trade.NewActor("alice")))
	return order
}

func TestEventSerializer_RoundTripsPurchaseOrderEvents(t *testing.T) {
	s := NewPurchaseOrderSerializer()
	order := newSubmittedOrder(t)

	events := order.GetDomainEvents()
	require.Len(t, events, 2)

	for _, original := range events {
		data, err := s.Serialize(original)
		require.NoError(t, err)

		decoded, err := s.Deserialize(original.EventType(), data)
		require.NoError(t, err)
		assert.IsType(t, original, decoded)
		assert.Equal(t, original.EventID(), decoded.EventID())
		assert.Equal(t, original.TenantID(), decoded.TenantID())
		assert.Equal(t, order.ID, decoded.AggregateID())
		assert.True(t, original.OccurredAt().Equal(decoded.OccurredAt()))
	}

	submitted, err := s.Deserialize(trade.EventTypePurchaseOrderSubmitted, mustSerialize(t, s, events[1]))
	require.NoError(t, err)
	e := submitted.(*trade.PurchaseOrderSubmittedEvent)
	assert.True(t, e.TotalAmount.Equal(decimal.RequireFromString("37.5")))
	assert.Equal(t, []int{1}, e.RequiredLevels)
	assert.Equal(t, "EUR", e.Currency)
}

func mustSerialize(t *testing.T, s *EventSerializer, e shared.DomainEvent) []byte {
	t.Helper()
	data, err := s.Serialize(e)
	require.NoError(t, err)
	return data
}

func TestEventSerializer_UnknownType(t *testing.T) {
	_, err := NewEventSerializer().Deserialize("Nope", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_BadPayload(t *testing.T) {
	_, err := NewPurchaseOrderSerializer().Deserialize(trade.EventTypePurchaseOrderCreated, []byte(`{"order_id":`))
	require.Error(t, err)
}

func TestRegisterPurchaseOrderEvents(t *testing.T) {
	s := NewPurchaseOrderSerializer()
	assert.Equal(t, []string{
		trade.EventTypePurchaseOrderApproved,
		trade.EventTypePurchaseOrderCancelled,
		trade.EventTypePurchaseOrderClosed,
		trade.EventTypePurchaseOrderCreated,
		trade.EventTypePurchaseOrderDispatched,
		trade.EventTypePurchaseOrderFullyReceived,
		trade.EventTypePurchaseOrderItemsReceived,
		trade.EventTypePurchaseOrderRejected,
		trade.EventTypePurchaseOrderSubmitted,
	}, s.RegisteredTypes())
	assert.False(t, s.IsRegistered("SalesOrderCreated"))
}
