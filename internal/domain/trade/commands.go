package trade

import (
	"strings"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
)

// CommandKind names a lifecycle command
type CommandKind string

const (
	CommandSubmit   CommandKind = "submit"
	CommandApprove  CommandKind = "approve"
	CommandReject   CommandKind = "reject"
	CommandDispatch CommandKind = "dispatch"
	CommandReceive  CommandKind = "receive"
	CommandCancel   CommandKind = "cancel"
	CommandClose    CommandKind = "close"
)

// Command is a lifecycle command carrying exactly the fields its guard needs.
// Validate only checks the shape; state-dependent guards run in PurchaseOrder.Execute.
type Command interface {
	Kind() CommandKind
	Validate() error
}

// SubmitCommand sends a draft or rejected order into the approval ladder
type SubmitCommand struct{}

func (SubmitCommand) Kind() CommandKind { return CommandSubmit }
func (SubmitCommand) Validate() error   { return nil }

// ApproveCommand approves the order at Level
type ApproveCommand struct {
	Level   int
	Comment string
}

func (ApproveCommand) Kind() CommandKind { return CommandApprove }

func (c ApproveCommand) Validate() error {
	if c.Level < 1 {
		return shared.NewDomainError(shared.CodeValidation, "Approval level must be at least 1")
	}
	return nil
}

// RejectCommand sends the order back to its author
type RejectCommand struct {
	Reason string
}

func (RejectCommand) Kind() CommandKind { return CommandReject }

func (c RejectCommand) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Rejection reason is required")
	}
	if len(c.Reason) > 500 {
		return shared.NewDomainError(shared.CodeValidation, "Rejection reason cannot exceed 500 characters")
	}
	return nil
}

// DispatchCommand marks the approved order as sent to the supplier
type DispatchCommand struct{}

func (DispatchCommand) Kind() CommandKind { return CommandDispatch }
func (DispatchCommand) Validate() error   { return nil }

// ReceiveItemsCommand records a batch of goods receipts
type ReceiveItemsCommand struct {
	Receipts []ReceiptLine
}

func (ReceiveItemsCommand) Kind() CommandKind { return CommandReceive }

func (c ReceiveItemsCommand) Validate() error {
	if len(c.Receipts) == 0 {
		return shared.NewDomainError(shared.CodeValidation, "At least one receipt is required")
	}
	for _, receipt := range c.Receipts {
		if err := receipt.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CancelCommand abandons the order before dispatch
type CancelCommand struct {
	Reason string
}

func (CancelCommand) Kind() CommandKind { return CommandCancel }

func (c CancelCommand) Validate() error {
	if len(c.Reason) > 500 {
		return shared.NewDomainError(shared.CodeValidation, "Cancel reason cannot exceed 500 characters")
	}
	return nil
}

// CloseCommand finalizes a fully received order
type CloseCommand struct{}

func (CloseCommand) Kind() CommandKind { return CommandClose }
func (CloseCommand) Validate() error   { return nil }
