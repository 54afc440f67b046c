package trade

// PurchaseOrderStatus is the lifecycle position of a purchase order.
// It is always computed from the order's canonical fields, see PurchaseOrder.Status.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusPending           PurchaseOrderStatus = "pending"
	PurchaseOrderStatusPartiallyApproved PurchaseOrderStatus = "partially_approved"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "approved"
	PurchaseOrderStatusRejected          PurchaseOrderStatus = "rejected"
	PurchaseOrderStatusSent              PurchaseOrderStatus = "sent"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
	PurchaseOrderStatusClosed            PurchaseOrderStatus = "closed"
)

// AllPurchaseOrderStatuses lists every status in lifecycle order
func AllPurchaseOrderStatuses() []PurchaseOrderStatus {
	return []PurchaseOrderStatus{
		PurchaseOrderStatusDraft,
		PurchaseOrderStatusPending,
		PurchaseOrderStatusPartiallyApproved,
		PurchaseOrderStatusApproved,
		PurchaseOrderStatusRejected,
		PurchaseOrderStatusSent,
		PurchaseOrderStatusPartiallyReceived,
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
		PurchaseOrderStatusClosed,
	}
}

// IsValid checks if the status is a known PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	for _, known := range AllPurchaseOrderStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no business transition leaves this status
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusClosed || s == PurchaseOrderStatusCancelled
}

// IsEditable reports whether header and lines may change
func (s PurchaseOrderStatus) IsEditable() bool {
	return s == PurchaseOrderStatusDraft || s == PurchaseOrderStatusRejected
}

// CanSubmit reports whether the order can enter the approval ladder
func (s PurchaseOrderStatus) CanSubmit() bool {
	return s.IsEditable()
}

// IsAwaitingApproval reports whether approve and reject are legal
func (s PurchaseOrderStatus) IsAwaitingApproval() bool {
	return s == PurchaseOrderStatusPending || s == PurchaseOrderStatusPartiallyApproved
}

// CanReceive reports whether goods can be received against the order
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusSent || s == PurchaseOrderStatusPartiallyReceived
}

// CanCancel reports whether the order can still be cancelled.
// Once dispatched, cancellation goes through the supplier instead.
func (s PurchaseOrderStatus) CanCancel() bool {
	switch s {
	case PurchaseOrderStatusSent, PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived,
		PurchaseOrderStatusClosed, PurchaseOrderStatusCancelled:
		return false
	}
	return true
}

// CanDelete reports whether the order may be removed from storage
func (s PurchaseOrderStatus) CanDelete() bool {
	return s == PurchaseOrderStatusDraft || s == PurchaseOrderStatusCancelled
}
