package trade

import (
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// now is the clock used for lifecycle markers
var now = func() time.Time { return time.Now().UTC() }

// ApprovalAction is the outcome recorded by an approver
type ApprovalAction string

const (
	ApprovalActionApproved ApprovalAction = "approved"
	ApprovalActionRejected ApprovalAction = "rejected"
)

// ApprovalRecord is an append-only entry of the approval history
type ApprovalRecord struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Level      int
	Action     ApprovalAction
	ActorID    string
	Comment    string
	OccurredAt time.Time
}

// PurchaseOrder is the aggregate root for purchase orders.
//
// The lifecycle status is not stored: Status derives it from the lifecycle markers,
// CurrentApprovalLevel and the received quantities, so it cannot drift from them.
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	OrderNumber          string
	SupplierID           uuid.UUID
	SupplierName         string
	WarehouseID          *uuid.UUID
	ExpectedDeliveryDate *time.Time
	Currency             valueobject.Currency
	Items                []OrderLineItem
	Subtotal             valueobject.Money
	DiscountTotal        valueobject.Money
	TaxTotal             valueobject.Money
	Total                valueobject.Money
	CurrentApprovalLevel int
	ApprovalHistory      []ApprovalRecord
	Receipts             []ReceivingEvent
	PaymentTerms         string
	ShippingMethod       string
	ShippingAddress      string
	Remark               string
	SubmittedAt          *time.Time
	SubmittedBy          string
	ApprovedAt           *time.Time
	RejectedAt           *time.Time
	RejectReason         string
	DispatchedAt         *time.Time
	DispatchedBy         string
	CancelledAt          *time.Time
	CancelReason         string
	ClosedAt             *time.Time
}

// NewPurchaseOrder creates a new draft purchase order
func NewPurchaseOrder(tenantID uuid.UUID, orderNumber string, supplierID uuid.UUID, supplierName string, currency valueobject.Currency, createdBy string) (*PurchaseOrder, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Tenant ID cannot be empty")
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order number cannot exceed 50 characters")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Supplier ID cannot be empty")
	}
	if strings.TrimSpace(supplierName) == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Supplier name cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	order := &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy, now()),
		OrderNumber:         orderNumber,
		SupplierID:          supplierID,
		SupplierName:        strings.TrimSpace(supplierName),
		Currency:            currency,
		Items:               make([]OrderLineItem, 0),
	}
	order.applyTotals(ZeroTotals(currency))

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order, order.CreatedAt))
	return order, nil
}

// Status derives the lifecycle status from the canonical fields
func (o *PurchaseOrder) Status() PurchaseOrderStatus {
	switch {
	case o.CancelledAt != nil:
		return PurchaseOrderStatusCancelled
	case o.ClosedAt != nil:
		return PurchaseOrderStatusClosed
	case o.DispatchedAt != nil:
		return o.receivingStatus()
	case o.ApprovedAt != nil:
		return PurchaseOrderStatusApproved
	case o.RejectedAt != nil:
		return PurchaseOrderStatusRejected
	case o.SubmittedAt != nil:
		if o.CurrentApprovalLevel > 0 {
			return PurchaseOrderStatusPartiallyApproved
		}
		return PurchaseOrderStatusPending
	}
	return PurchaseOrderStatusDraft
}

// receivingStatus treats any ledger entry as the start of receiving,
// including a batch made only of rejected units.
func (o *PurchaseOrder) receivingStatus() PurchaseOrderStatus {
	if len(o.Items) == 0 {
		return PurchaseOrderStatusSent
	}
	all, some := true, len(o.Receipts) > 0
	for i := range o.Items {
		line := &o.Items[i]
		if !line.IsFullyReceived() {
			all = false
		}
		if line.ReceivedQuantity > 0 || line.RejectedQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return PurchaseOrderStatusReceived
	case some:
		return PurchaseOrderStatusPartiallyReceived
	}
	return PurchaseOrderStatusSent
}

// HeaderInput carries the editable header fields
type HeaderInput struct {
	SupplierID           *uuid.UUID
	SupplierName         *string
	WarehouseID          *uuid.UUID
	ExpectedDeliveryDate *time.Time
	PaymentTerms         *string
	ShippingMethod       *string
	ShippingAddress      *string
	Remark               *string
}

// UpdateHeader changes header fields; nil fields are left untouched
func (o *PurchaseOrder) UpdateHeader(in HeaderInput) error {
	if err := o.ensureEditable("update"); err != nil {
		return err
	}
	if in.SupplierID != nil {
		if *in.SupplierID == uuid.Nil {
			return shared.NewDomainError(shared.CodeValidation, "Supplier ID cannot be empty")
		}
		o.SupplierID = *in.SupplierID
	}
	if in.SupplierName != nil {
		if strings.TrimSpace(*in.SupplierName) == "" {
			return shared.NewDomainError(shared.CodeValidation, "Supplier name cannot be empty")
		}
		o.SupplierName = strings.TrimSpace(*in.SupplierName)
	}
	if in.WarehouseID != nil {
		if *in.WarehouseID == uuid.Nil {
			return shared.NewDomainError(shared.CodeValidation, "Warehouse ID cannot be empty")
		}
		id := *in.WarehouseID
		o.WarehouseID = &id
	}
	if in.ExpectedDeliveryDate != nil {
		date := *in.ExpectedDeliveryDate
		o.ExpectedDeliveryDate = &date
	}
	if in.PaymentTerms != nil {
		o.PaymentTerms = *in.PaymentTerms
	}
	if in.ShippingMethod != nil {
		o.ShippingMethod = *in.ShippingMethod
	}
	if in.ShippingAddress != nil {
		o.ShippingAddress = *in.ShippingAddress
	}
	if in.Remark != nil {
		o.Remark = *in.Remark
	}
	o.Touch(now())
	return nil
}

// AddItem appends a line and recomputes the totals
func (o *PurchaseOrder) AddItem(in LineItemInput) (*OrderLineItem, error) {
	if err := o.ensureEditable("add items to"); err != nil {
		return nil, err
	}
	for i := range o.Items {
		if o.Items[i].ProductID == in.ProductID {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Product %s is already on the order", in.ProductCode)
		}
	}
	at := now()
	item, err := newOrderLineItem(o.ID, o.Currency, in, at)
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, *item)
	if err := o.recalculateTotals(); err != nil {
		o.Items = o.Items[:len(o.Items)-1]
		return nil, err
	}
	o.Touch(at)
	return &o.Items[len(o.Items)-1], nil
}

// UpdateItem replaces the editable fields of a line
func (o *PurchaseOrder) UpdateItem(itemID uuid.UUID, in LineItemInput) error {
	if err := o.ensureEditable("update items of"); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Order item not found")
	}
	for i := range o.Items {
		if o.Items[i].ID != itemID && o.Items[i].ProductID == in.ProductID {
			return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Product %s is already on the order", in.ProductCode)
		}
	}
	previous := *item
	at := now()
	item.apply(in, at)
	if err := o.recalculateTotals(); err != nil {
		*item = previous
		return err
	}
	o.Touch(at)
	return nil
}

// RemoveItem drops a line and recomputes the totals
func (o *PurchaseOrder) RemoveItem(itemID uuid.UUID) error {
	if err := o.ensureEditable("remove items from"); err != nil {
		return err
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			if err := o.recalculateTotals(); err != nil {
				return err
			}
			o.Touch(now())
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Order item not found")
}

// GetItem returns the line with the given id, or nil
func (o *PurchaseOrder) GetItem(itemID uuid.UUID) *OrderLineItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ItemCount returns the number of lines
func (o *PurchaseOrder) ItemCount() int {
	return len(o.Items)
}

// CanDelete reports whether the order may be removed from storage
func (o *PurchaseOrder) CanDelete() bool {
	return o.Status().CanDelete()
}

// ComputeTotals prices the current lines without touching the stored totals
func (o *PurchaseOrder) ComputeTotals() (OrderTotals, error) {
	return ComputeTotals(o.Currency, o.Items)
}

// StoredTotals returns the totals held on the order
func (o *PurchaseOrder) StoredTotals() OrderTotals {
	return OrderTotals{Subtotal: o.Subtotal, DiscountTotal: o.DiscountTotal, TaxTotal: o.TaxTotal, Total: o.Total}
}

// VerifyTotals recomputes the totals and reports whether they match the stored ones
func (o *PurchaseOrder) VerifyTotals() (OrderTotals, bool, error) {
	computed, err := o.ComputeTotals()
	if err != nil {
		return OrderTotals{}, false, err
	}
	return computed, computed.Equals(o.StoredTotals()), nil
}

func (o *PurchaseOrder) recalculateTotals() error {
	totals, err := o.ComputeTotals()
	if err != nil {
		return err
	}
	o.applyTotals(totals)
	return nil
}

func (o *PurchaseOrder) applyTotals(t OrderTotals) {
	o.Subtotal = t.Subtotal
	o.DiscountTotal = t.DiscountTotal
	o.TaxTotal = t.TaxTotal
	o.Total = t.Total
}

func (o *PurchaseOrder) ensureEditable(action string) error {
	if status := o.Status(); !status.IsEditable() {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition, "Cannot %s order in %s status", action, status)
	}
	return nil
}

func invalidTransition(cmd CommandKind, status PurchaseOrderStatus) error {
	return shared.NewDomainErrorf(shared.CodeInvalidTransition, "Cannot %s order in %s status", cmd, status)
}

// Execute runs a lifecycle command against the order.
// Every (status, command) pair either moves the order to a defined status or returns a DomainError.
func (o *PurchaseOrder) Execute(ladder *ApprovalLadder, actor Actor, cmd Command) error {
	if cmd == nil {
		return shared.NewDomainError(shared.CodeValidation, "Command is required")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	switch c := cmd.(type) {
	case SubmitCommand:
		return o.Submit(ladder, actor)
	case ApproveCommand:
		return o.Approve(ladder, actor, c.Level, c.Comment)
	case RejectCommand:
		return o.Reject(ladder, actor, c.Reason)
	case DispatchCommand:
		return o.Dispatch(actor)
	case ReceiveItemsCommand:
		return o.ReceiveItems(actor, c.Receipts)
	case CancelCommand:
		return o.Cancel(actor, c.Reason)
	case CloseCommand:
		return o.Close(actor)
	}
	return shared.NewDomainErrorf(shared.CodeValidation, "Unknown command %q", cmd.Kind())
}

// Submit sends the order into the approval ladder.
// An order no level applies to is approved immediately.
func (o *PurchaseOrder) Submit(ladder *ApprovalLadder, actor Actor) error {
	status := o.Status()
	if !status.CanSubmit() {
		return invalidTransition(CommandSubmit, status)
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError(shared.CodeValidation, "Cannot submit order without items")
	}
	if o.WarehouseID == nil {
		return shared.NewDomainError(shared.CodeValidation, "Warehouse must be set before submitting")
	}
	if o.SupplierID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Supplier must be set before submitting")
	}
	if _, consistent, err := o.VerifyTotals(); err != nil {
		return err
	} else if !consistent {
		return shared.NewDomainError(shared.CodeInvariantViolation, "Stored totals do not match the order lines")
	}

	at := now()
	o.SubmittedAt = &at
	o.SubmittedBy = actor.ID
	o.RejectedAt = nil
	o.RejectReason = ""
	o.ApprovedAt = nil
	o.CurrentApprovalLevel = 0

	required := ladder.RequiredLevels(o.Total.Amount())
	if len(required) == 0 {
		o.ApprovedAt = &at
	}
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderSubmittedEvent(o, required, actor.ID, at))
	return nil
}

// Approve records the approval of the next required level
func (o *PurchaseOrder) Approve(ladder *ApprovalLadder, actor Actor, level int, comment string) error {
	status := o.Status()
	if !status.IsAwaitingApproval() {
		return invalidTransition(CommandApprove, status)
	}
	total := o.Total.Amount()
	next, ok := ladder.NextLevelFor(o)
	if !ok {
		return shared.NewDomainError(shared.CodeInvalidTransition, "No approval level remains for this order")
	}
	if level != next.Level {
		if configured, exists := ladder.Level(level); exists && level > o.CurrentApprovalLevel && !configured.Applies(total) {
			return shared.NewDomainErrorf(shared.CodeAmountOutOfRange,
				"Approval level %d does not apply to an order total of %s", level, o.Total)
		}
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"Order awaits approval at level %d, not level %d", next.Level, level)
	}
	if !actor.IsMemberOf(next) {
		return shared.NewDomainErrorf(shared.CodeUnauthorized, "Actor %s cannot approve at level %d", actor.ID, level)
	}
	if !ladder.IsAmountInRange(next, total) {
		return shared.NewDomainErrorf(shared.CodeAmountOutOfRange,
			"Order total %s exceeds the authority of approval level %d", o.Total, level)
	}

	at := now()
	record := ApprovalRecord{
		ID:         uuid.New(),
		OrderID:    o.ID,
		Level:      level,
		Action:     ApprovalActionApproved,
		ActorID:    actor.ID,
		Comment:    comment,
		OccurredAt: at,
	}
	o.ApprovalHistory = append(o.ApprovalHistory, record)
	o.CurrentApprovalLevel = level
	nextLevel := 0
	if following, more := ladder.NextLevelFor(o); more {
		nextLevel = following.Level
	} else {
		o.ApprovedAt = &at
	}
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderApprovedEvent(o, record, nextLevel))
	return nil
}

// Reject sends the order back to its author.
// The approval chain restarts from the first level on the next submit.
func (o *PurchaseOrder) Reject(ladder *ApprovalLadder, actor Actor, reason string) error {
	status := o.Status()
	if !status.IsAwaitingApproval() {
		return invalidTransition(CommandReject, status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError(shared.CodeValidation, "Rejection reason is required")
	}
	next, ok := ladder.NextLevelFor(o)
	if !ok {
		return shared.NewDomainError(shared.CodeInvalidTransition, "No approval level remains for this order")
	}
	if !actor.IsMemberOf(next) {
		return shared.NewDomainErrorf(shared.CodeUnauthorized, "Actor %s cannot reject at level %d", actor.ID, next.Level)
	}

	at := now()
	record := ApprovalRecord{
		ID:         uuid.New(),
		OrderID:    o.ID,
		Level:      next.Level,
		Action:     ApprovalActionRejected,
		ActorID:    actor.ID,
		Comment:    reason,
		OccurredAt: at,
	}
	o.ApprovalHistory = append(o.ApprovalHistory, record)
	o.RejectedAt = &at
	o.RejectReason = reason
	o.CurrentApprovalLevel = 0
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderRejectedEvent(o, record))
	return nil
}

// Dispatch marks the approved order as sent to the supplier
func (o *PurchaseOrder) Dispatch(actor Actor) error {
	status := o.Status()
	if status != PurchaseOrderStatusApproved {
		return invalidTransition(CommandDispatch, status)
	}
	at := now()
	o.DispatchedAt = &at
	o.DispatchedBy = actor.ID
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderDispatchedEvent(o, actor.ID, at))
	return nil
}

// ReceiveItems applies a receiving batch through the ledger
func (o *PurchaseOrder) ReceiveItems(actor Actor, receipts []ReceiptLine) error {
	status := o.Status()
	if !status.CanReceive() {
		return invalidTransition(CommandReceive, status)
	}
	at := now()
	entries, err := ReceivingLedger{}.Apply(o, receipts, actor.ID, at)
	if err != nil {
		return err
	}
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderItemsReceivedEvent(o, entries, actor.ID, at))
	if o.Status() == PurchaseOrderStatusReceived {
		o.AddDomainEvent(NewPurchaseOrderFullyReceivedEvent(o, at))
	}
	return nil
}

// Cancel abandons an order that has not been dispatched
func (o *PurchaseOrder) Cancel(actor Actor, reason string) error {
	status := o.Status()
	if !status.CanCancel() {
		return invalidTransition(CommandCancel, status)
	}
	at := now()
	o.CancelledAt = &at
	o.CancelReason = strings.TrimSpace(reason)
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o, status, actor.ID, at))
	return nil
}

// Close finalizes a fully received order
func (o *PurchaseOrder) Close(actor Actor) error {
	status := o.Status()
	if status != PurchaseOrderStatusReceived {
		return invalidTransition(CommandClose, status)
	}
	at := now()
	o.ClosedAt = &at
	o.Touch(at)
	o.AddDomainEvent(NewPurchaseOrderClosedEvent(o, actor.ID, at))
	return nil
}

// Order actions that are not lifecycle commands
const (
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// AvailableActions lists what the actor may do with the order in its current status
func (o *PurchaseOrder) AvailableActions(ladder *ApprovalLadder, actor Actor) []string {
	status := o.Status()
	actions := make([]string, 0, 4)
	if status.IsEditable() {
		actions = append(actions, ActionEdit)
	}
	if status.CanSubmit() && len(o.Items) > 0 {
		actions = append(actions, string(CommandSubmit))
	}
	if status.IsAwaitingApproval() {
		if next, ok := ladder.NextLevelFor(o); ok && actor.IsMemberOf(next) {
			if ladder.IsAmountInRange(next, o.Total.Amount()) {
				actions = append(actions, string(CommandApprove))
			}
			actions = append(actions, string(CommandReject))
		}
	}
	if status == PurchaseOrderStatusApproved {
		actions = append(actions, string(CommandDispatch))
	}
	if status.CanReceive() {
		actions = append(actions, string(CommandReceive))
	}
	if status == PurchaseOrderStatusReceived {
		actions = append(actions, string(CommandClose))
	}
	if status.CanCancel() {
		actions = append(actions, string(CommandCancel))
	}
	if status.CanDelete() {
		actions = append(actions, ActionDelete)
	}
	return actions
}
