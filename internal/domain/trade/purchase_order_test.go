package trade

import (
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice   = NewActor("alice")
	bob     = NewActor("bob")
	mallory = NewActor("mallory")
	clerk   = NewActor("clerk")
)

// Test helpers for PurchaseOrder

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// twoLevelLadder: L1 covers 0..1000 and is held by alice, L2 applies from 1000 and is held by bob
func twoLevelLadder(t *testing.T) *ApprovalLadder {
	ladder, err := NewApprovalLadder([]ApprovalLevel{
		{Level: 1, Name: "Team lead", Approvers: []string{"alice"}, MinAmount: decPtr("0"), MaxAmount: decPtr("1000")},
		{Level: 2, Name: "Finance", Approvers: []string{"bob"}, MinAmount: decPtr("1000")},
	})
	require.NoError(t, err)
	return ladder
}

func lineInput(qty int64, price string) LineItemInput {
	return LineItemInput{
		ProductID:   uuid.New(),
		ProductCode: "SKU-" + uuid.NewString()[:8],
		ProductName: "Test product",
		Unit:        "pcs",
		Quantity:    qty,
		UnitPrice:   dec(price),
	}
}

func createTestPurchaseOrder(t *testing.T) *PurchaseOrder {
	order, err := NewPurchaseOrder(uuid.New(), "PO-2026-00001", uuid.New(), "Test Supplier", valueobject.USD, "author")
	require.NoError(t, err)
	warehouseID := uuid.New()
	require.NoError(t, order.UpdateHeader(HeaderInput{WarehouseID: &warehouseID}))
	return order
}

func createOrderWithLines(t *testing.T, lines ...LineItemInput) *PurchaseOrder {
	order := createTestPurchaseOrder(t)
	for _, in := range lines {
		_, err := order.AddItem(in)
		require.NoError(t, err)
	}
	return order
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, shared.ErrorCode(err), "unexpected error: %v", err)
}

func TestNewPurchaseOrder(t *testing.T) {
	t.Run("creates draft with zero totals", func(t *testing.T) {
		tenantID := uuid.New()
		order, err := NewPurchaseOrder(tenantID, "PO-2026-00001", uuid.New(), "Acme", valueobject.EUR, "author")
		require.NoError(t, err)

		assert.Equal(t, PurchaseOrderStatusDraft, order.Status())
		assert.Equal(t, tenantID, order.TenantID)
		assert.Equal(t, 1, order.Version)
		assert.Equal(t, 0, order.CurrentApprovalLevel)
		assert.True(t, order.Total.IsZero())
		assert.Equal(t, valueobject.EUR, order.Total.Currency())

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypePurchaseOrderCreated, events[0].EventType())
	})

	t.Run("defaults the currency", func(t *testing.T) {
		order, err := NewPurchaseOrder(uuid.New(), "PO-2026-00002", uuid.New(), "Acme", "", "author")
		require.NoError(t, err)
		assert.Equal(t, valueobject.DefaultCurrency, order.Currency)
	})

	tests := []struct {
		name         string
		tenantID     uuid.UUID
		orderNumber  string
		supplierID   uuid.UUID
		supplierName string
	}{
		{"empty tenant", uuid.Nil, "PO-1", uuid.New(), "Acme"},
		{"empty number", uuid.New(), "  ", uuid.New(), "Acme"},
		{"empty supplier", uuid.New(), "PO-1", uuid.Nil, "Acme"},
		{"empty supplier name", uuid.New(), "PO-1", uuid.New(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPurchaseOrder(tt.tenantID, tt.orderNumber, tt.supplierID, tt.supplierName, valueobject.USD, "author")
			assertCode(t, err, shared.CodeValidation)
		})
	}
}

func TestPurchaseOrder_Items(t *testing.T) {
	t.Run("add recomputes totals", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(10, "5"), lineInput(2, "50"))
		assert.True(t, order.Total.Amount().Equal(dec("150")))
		assert.Equal(t, 2, order.ItemCount())
	})

	t.Run("duplicate product rejected", func(t *testing.T) {
		in := lineInput(1, "5")
		order := createOrderWithLines(t, in)
		_, err := order.AddItem(in)
		assertCode(t, err, shared.CodeAlreadyExists)
	})

	t.Run("update recomputes totals", func(t *testing.T) {
		in := lineInput(1, "5")
		order := createOrderWithLines(t, in)
		in.Quantity = 4
		require.NoError(t, order.UpdateItem(order.Items[0].ID, in))
		assert.True(t, order.Total.Amount().Equal(dec("20")))
	})

	t.Run("remove recomputes totals", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"), lineInput(1, "7"))
		require.NoError(t, order.RemoveItem(order.Items[0].ID))
		assert.True(t, order.Total.Amount().Equal(dec("7")))
		assertCode(t, order.RemoveItem(uuid.New()), shared.CodeNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		order := createTestPurchaseOrder(t)
		in := lineInput(0, "5")
		_, err := order.AddItem(in)
		assertCode(t, err, shared.CodeValidation)

		in = lineInput(1, "5")
		in.TaxPercent = dec("101")
		_, err = order.AddItem(in)
		assertCode(t, err, shared.CodeValidation)
	})

	t.Run("more decimals than stored are rejected", func(t *testing.T) {
		order := createTestPurchaseOrder(t)
		_, err := order.AddItem(lineInput(1, "9.99995"))
		assertCode(t, err, shared.CodeValidation)

		in := lineInput(1, "9.99")
		in.DiscountPercent = dec("12.34567")
		_, err = order.AddItem(in)
		assertCode(t, err, shared.CodeValidation)

		in.DiscountPercent = dec("12.3450000")
		_, err = order.AddItem(in)
		require.NoError(t, err, "trailing zeros fit the scale")
	})

	t.Run("edits rejected after submit", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"))
		require.NoError(t, order.Submit(twoLevelLadder(t), clerk))

		_, err := order.AddItem(lineInput(1, "5"))
		assertCode(t, err, shared.CodeInvalidTransition)
		remark := "late change"
		assertCode(t, order.UpdateHeader(HeaderInput{Remark: &remark}), shared.CodeInvalidTransition)
	})
}

func TestPurchaseOrder_Submit(t *testing.T) {
	ladder := twoLevelLadder(t)

	t.Run("without items", func(t *testing.T) {
		order := createTestPurchaseOrder(t)
		assertCode(t, order.Submit(ladder, clerk), shared.CodeValidation)
	})

	t.Run("without warehouse", func(t *testing.T) {
		order, err := NewPurchaseOrder(uuid.New(), "PO-2026-00009", uuid.New(), "Acme", valueobject.USD, "author")
		require.NoError(t, err)
		_, err = order.AddItem(lineInput(1, "5"))
		require.NoError(t, err)
		assertCode(t, order.Submit(ladder, clerk), shared.CodeValidation)
	})

	t.Run("moves to pending", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"))
		order.ClearDomainEvents()
		require.NoError(t, order.Submit(ladder, clerk))
		assert.Equal(t, PurchaseOrderStatusPending, order.Status())
		assert.Equal(t, "clerk", order.SubmittedBy)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		submitted, ok := events[0].(*PurchaseOrderSubmittedEvent)
		require.True(t, ok)
		assert.Equal(t, []int{1}, submitted.RequiredLevels)
	})

	t.Run("no applicable level approves immediately", func(t *testing.T) {
		ladder, err := NewApprovalLadder([]ApprovalLevel{
			{Level: 1, Approvers: []string{"alice"}, MinAmount: decPtr("500")},
		})
		require.NoError(t, err)
		order := createOrderWithLines(t, lineInput(1, "5"))
		require.NoError(t, order.Submit(ladder, clerk))
		assert.Equal(t, PurchaseOrderStatusApproved, order.Status())
	})

	t.Run("detects drifted totals", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"))
		order.Total = valueobject.MustMoney(dec("999"), valueobject.USD)
		assertCode(t, order.Submit(ladder, clerk), shared.CodeInvariantViolation)
	})
}

// Scenario B: a two-level ladder and an order of 1800
func TestPurchaseOrder_TwoLevelApproval(t *testing.T) {
	ladder := twoLevelLadder(t)
	order := createOrderWithLines(t, lineInput(10, "180"))
	require.True(t, order.Total.Amount().Equal(dec("1800")))
	require.NoError(t, order.Submit(ladder, clerk))
	require.Equal(t, PurchaseOrderStatusPending, order.Status())

	err := order.Approve(ladder, bob, 1, "")
	assertCode(t, err, shared.CodeUnauthorized)
	assert.Equal(t, PurchaseOrderStatusPending, order.Status())
	assert.Empty(t, order.ApprovalHistory)

	require.NoError(t, order.Approve(ladder, alice, 1, "ok"))
	assert.Equal(t, PurchaseOrderStatusPartiallyApproved, order.Status())
	assert.Equal(t, 1, order.CurrentApprovalLevel)

	require.NoError(t, order.Approve(ladder, bob, 2, "ok"))
	assert.Equal(t, PurchaseOrderStatusApproved, order.Status())
	assert.Equal(t, 2, order.CurrentApprovalLevel)
	require.Len(t, order.ApprovalHistory, 2)
	assert.Equal(t, "alice", order.ApprovalHistory[0].ActorID)
	assert.Equal(t, "bob", order.ApprovalHistory[1].ActorID)

	var fully []bool
	for _, e := range order.GetDomainEvents() {
		if approved, ok := e.(*PurchaseOrderApprovedEvent); ok {
			fully = append(fully, approved.FullyApproved)
		}
	}
	assert.Equal(t, []bool{false, true}, fully)
}

func TestPurchaseOrder_ApproveGuards(t *testing.T) {
	ladder := twoLevelLadder(t)

	t.Run("level out of order", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(10, "180"))
		require.NoError(t, order.Submit(ladder, clerk))
		assertCode(t, order.Approve(ladder, bob, 2, ""), shared.CodeInvalidTransition)
		assertCode(t, order.Approve(ladder, alice, 3, ""), shared.CodeInvalidTransition)
	})

	t.Run("skipped level", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(10, "5"))
		require.NoError(t, order.Submit(ladder, clerk))
		assertCode(t, order.Approve(ladder, bob, 2, ""), shared.CodeAmountOutOfRange)

		require.NoError(t, order.Approve(ladder, alice, 1, ""))
		assert.Equal(t, PurchaseOrderStatusApproved, order.Status())
	})

	t.Run("amount above the last level", func(t *testing.T) {
		capped, err := NewApprovalLadder([]ApprovalLevel{
			{Level: 1, Approvers: []string{"alice"}, MaxAmount: decPtr("1000")},
		})
		require.NoError(t, err)
		order := createOrderWithLines(t, lineInput(10, "180"))
		require.NoError(t, order.Submit(capped, clerk))
		assertCode(t, order.Approve(capped, alice, 1, ""), shared.CodeAmountOutOfRange)
	})

	t.Run("membership from actor levels", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(10, "5"))
		require.NoError(t, order.Submit(ladder, clerk))
		require.NoError(t, order.Approve(ladder, NewActor("delegate", 1), 1, ""))
	})

	t.Run("invalid status", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(10, "5"))
		assertCode(t, order.Approve(ladder, alice, 1, ""), shared.CodeInvalidTransition)
	})
}

func TestPurchaseOrder_RejectAndResubmit(t *testing.T) {
	ladder := twoLevelLadder(t)
	order := createOrderWithLines(t, lineInput(10, "180"))
	require.NoError(t, order.Submit(ladder, clerk))
	require.NoError(t, order.Approve(ladder, alice, 1, ""))

	assertCode(t, order.Reject(ladder, mallory, "no"), shared.CodeUnauthorized)
	assertCode(t, order.Reject(ladder, bob, "  "), shared.CodeValidation)

	require.NoError(t, order.Reject(ladder, bob, "price too high"))
	assert.Equal(t, PurchaseOrderStatusRejected, order.Status())
	assert.Equal(t, 0, order.CurrentApprovalLevel)
	assert.Equal(t, "price too high", order.RejectReason)
	require.Len(t, order.ApprovalHistory, 2)
	assert.Equal(t, ApprovalActionRejected, order.ApprovalHistory[1].Action)
	assert.Equal(t, 2, order.ApprovalHistory[1].Level)

	// a rejected order can be corrected and goes through the whole ladder again
	in := LineItemInput{
		ProductID:   order.Items[0].ProductID,
		ProductCode: order.Items[0].ProductCode,
		ProductName: order.Items[0].ProductName,
		Quantity:    9,
		UnitPrice:   dec("180"),
	}
	require.NoError(t, order.UpdateItem(order.Items[0].ID, in))
	require.NoError(t, order.Submit(ladder, clerk))
	assert.Equal(t, PurchaseOrderStatusPending, order.Status())
	assert.Empty(t, order.RejectReason)
	assertCode(t, order.Approve(ladder, bob, 2, ""), shared.CodeInvalidTransition)
	require.NoError(t, order.Approve(ladder, alice, 1, ""))
	assert.Len(t, order.ApprovalHistory, 3)
}

// Scenario D
func TestPurchaseOrder_Cancel(t *testing.T) {
	ladder := twoLevelLadder(t)

	t.Run("draft can be cancelled", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"))
		require.NoError(t, order.Cancel(clerk, "not needed"))
		assert.Equal(t, PurchaseOrderStatusCancelled, order.Status())
		assert.Equal(t, "not needed", order.CancelReason)
		assert.True(t, order.CanDelete())
	})

	t.Run("sent cannot be cancelled", func(t *testing.T) {
		order := createOrderWithLines(t, lineInput(1, "5"))
		require.NoError(t, order.Submit(ladder, clerk))
		require.NoError(t, order.Approve(ladder, alice, 1, ""))
		require.NoError(t, order.Dispatch(clerk))
		require.Equal(t, PurchaseOrderStatusSent, order.Status())

		assertCode(t, order.Cancel(clerk, "too late"), shared.CodeInvalidTransition)
		assert.Equal(t, PurchaseOrderStatusSent, order.Status())
	})
}

func TestPurchaseOrder_Execute(t *testing.T) {
	ladder := twoLevelLadder(t)
	order := createOrderWithLines(t, lineInput(2, "5"))

	assertCode(t, order.Execute(ladder, alice, nil), shared.CodeValidation)
	assertCode(t, order.Execute(ladder, alice, ApproveCommand{Level: 0}), shared.CodeValidation)
	assertCode(t, order.Execute(ladder, alice, RejectCommand{}), shared.CodeValidation)
	assertCode(t, order.Execute(ladder, alice, ReceiveItemsCommand{}), shared.CodeValidation)

	require.NoError(t, order.Execute(ladder, clerk, SubmitCommand{}))
	require.NoError(t, order.Execute(ladder, alice, ApproveCommand{Level: 1}))
	require.NoError(t, order.Execute(ladder, clerk, DispatchCommand{}))
	require.NoError(t, order.Execute(ladder, clerk, ReceiveItemsCommand{Receipts: []ReceiptLine{
		{LineID: order.Items[0].ID, Quantity: 2},
	}}))
	require.NoError(t, order.Execute(ladder, clerk, CloseCommand{}))
	assert.Equal(t, PurchaseOrderStatusClosed, order.Status())

	types := make([]string, 0)
	for _, e := range order.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{
		EventTypePurchaseOrderCreated,
		EventTypePurchaseOrderSubmitted,
		EventTypePurchaseOrderApproved,
		EventTypePurchaseOrderDispatched,
		EventTypePurchaseOrderItemsReceived,
		EventTypePurchaseOrderFullyReceived,
		EventTypePurchaseOrderClosed,
	}, types)
}

func TestPurchaseOrder_AvailableActions(t *testing.T) {
	ladder := twoLevelLadder(t)
	order := createOrderWithLines(t, lineInput(10, "180"))
	assert.ElementsMatch(t, []string{ActionEdit, "submit", "cancel", ActionDelete}, order.AvailableActions(ladder, clerk))

	require.NoError(t, order.Submit(ladder, clerk))
	assert.ElementsMatch(t, []string{"approve", "reject", "cancel"}, order.AvailableActions(ladder, alice))
	assert.ElementsMatch(t, []string{"cancel"}, order.AvailableActions(ladder, bob))
}

func TestPurchaseOrder_StatusIsDerived(t *testing.T) {
	ladder := twoLevelLadder(t)
	order := createOrderWithLines(t, lineInput(10, "180"))
	require.NoError(t, order.Submit(ladder, clerk))
	require.NoError(t, order.Approve(ladder, alice, 1, ""))

	// clearing the canonical field moves the projection with it
	order.CurrentApprovalLevel = 0
	assert.Equal(t, PurchaseOrderStatusPending, order.Status())
}
