package trade

import (
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderInStatus builds an order of 1800 (both levels required) and drives it to status
func orderInStatus(t *testing.T, ladder *ApprovalLadder, status PurchaseOrderStatus) *PurchaseOrder {
	t.Helper()
	order := createOrderWithLines(t, lineInput(10, "180"))
	lineID := order.Items[0].ID
	steps := map[PurchaseOrderStatus][]Command{
		PurchaseOrderStatusDraft:             nil,
		PurchaseOrderStatusPending:           {SubmitCommand{}},
		PurchaseOrderStatusPartiallyApproved: {SubmitCommand{}, ApproveCommand{Level: 1}},
		PurchaseOrderStatusApproved:          {SubmitCommand{}, ApproveCommand{Level: 1}, ApproveCommand{Level: 2}},
		PurchaseOrderStatusRejected:          {SubmitCommand{}, RejectCommand{Reason: "no"}},
		PurchaseOrderStatusSent:              {SubmitCommand{}, ApproveCommand{Level: 1}, ApproveCommand{Level: 2}, DispatchCommand{}},
		PurchaseOrderStatusPartiallyReceived: {SubmitCommand{}, ApproveCommand{Level: 1}, ApproveCommand{Level: 2}, DispatchCommand{},
			ReceiveItemsCommand{Receipts: []ReceiptLine{{LineID: lineID, Quantity: 6}}}},
		PurchaseOrderStatusReceived: {SubmitCommand{}, ApproveCommand{Level: 1}, ApproveCommand{Level: 2}, DispatchCommand{},
			ReceiveItemsCommand{Receipts: []ReceiptLine{{LineID: lineID, Quantity: 10}}}},
		PurchaseOrderStatusClosed: {SubmitCommand{}, ApproveCommand{Level: 1}, ApproveCommand{Level: 2}, DispatchCommand{},
			ReceiveItemsCommand{Receipts: []ReceiptLine{{LineID: lineID, Quantity: 10}}}, CloseCommand{}},
		PurchaseOrderStatusCancelled: {CancelCommand{}},
	}
	for _, cmd := range steps[status] {
		require.NoError(t, order.Execute(ladder, superActor, cmd))
	}
	require.Equal(t, status, order.Status())
	return order
}

var superActor = NewActor("super", 1, 2)

// Every status × command pair either reaches the expected status or fails with INVALID_TRANSITION
func TestStateMachineIsTotal(t *testing.T) {
	ladder := twoLevelLadder(t)

	legal := map[PurchaseOrderStatus]map[CommandKind]PurchaseOrderStatus{
		PurchaseOrderStatusDraft: {
			CommandSubmit: PurchaseOrderStatusPending,
			CommandCancel: PurchaseOrderStatusCancelled,
		},
		PurchaseOrderStatusPending: {
			CommandApprove: PurchaseOrderStatusPartiallyApproved,
			CommandReject:  PurchaseOrderStatusRejected,
			CommandCancel:  PurchaseOrderStatusCancelled,
		},
		PurchaseOrderStatusPartiallyApproved: {
			CommandApprove: PurchaseOrderStatusApproved,
			CommandReject:  PurchaseOrderStatusRejected,
			CommandCancel:  PurchaseOrderStatusCancelled,
		},
		PurchaseOrderStatusApproved: {
			CommandDispatch: PurchaseOrderStatusSent,
			CommandCancel:   PurchaseOrderStatusCancelled,
		},
		PurchaseOrderStatusRejected: {
			CommandSubmit: PurchaseOrderStatusPending,
			CommandCancel: PurchaseOrderStatusCancelled,
		},
		PurchaseOrderStatusSent: {
			CommandReceive: PurchaseOrderStatusPartiallyReceived,
		},
		PurchaseOrderStatusPartiallyReceived: {
			CommandReceive: PurchaseOrderStatusPartiallyReceived,
		},
		PurchaseOrderStatusReceived: {
			CommandClose: PurchaseOrderStatusClosed,
		},
		PurchaseOrderStatusCancelled: {},
		PurchaseOrderStatusClosed:    {},
	}

	for _, status := range AllPurchaseOrderStatuses() {
		for _, kind := range []CommandKind{CommandSubmit, CommandApprove, CommandReject, CommandDispatch, CommandReceive, CommandCancel, CommandClose} {
			t.Run(string(status)+"/"+string(kind), func(t *testing.T) {
				order := orderInStatus(t, ladder, status)
				before := len(order.GetDomainEvents())

				var cmd Command
				switch kind {
				case CommandSubmit:
					cmd = SubmitCommand{}
				case CommandApprove:
					level := 1
					if next, ok := ladder.NextLevelFor(order); ok {
						level = next.Level
					}
					cmd = ApproveCommand{Level: level}
				case CommandReject:
					cmd = RejectCommand{Reason: "no"}
				case CommandDispatch:
					cmd = DispatchCommand{}
				case CommandReceive:
					cmd = ReceiveItemsCommand{Receipts: []ReceiptLine{{LineID: order.Items[0].ID, Quantity: 1}}}
				case CommandCancel:
					cmd = CancelCommand{Reason: "test"}
				case CommandClose:
					cmd = CloseCommand{}
				}

				err := order.Execute(ladder, superActor, cmd)
				if want, ok := legal[status][kind]; ok {
					require.NoError(t, err)
					assert.Equal(t, want, order.Status())
					assert.Greater(t, len(order.GetDomainEvents()), before)
					return
				}
				assertCode(t, err, shared.CodeInvalidTransition)
				assert.Equal(t, status, order.Status())
				assert.Len(t, order.GetDomainEvents(), before)
			})
		}
	}
}

func TestPurchaseOrderStatus_Predicates(t *testing.T) {
	for _, status := range AllPurchaseOrderStatuses() {
		t.Run(string(status), func(t *testing.T) {
			assert.True(t, status.IsValid())
			assert.Equal(t, status == PurchaseOrderStatusClosed || status == PurchaseOrderStatusCancelled, status.IsTerminal())
			if status.IsTerminal() {
				assert.False(t, status.CanCancel())
				assert.False(t, status.CanReceive())
				assert.False(t, status.IsEditable())
			}
		})
	}
	assert.False(t, PurchaseOrderStatus("CONFIRMED").IsValid())
}
