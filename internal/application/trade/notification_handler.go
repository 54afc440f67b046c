package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification kinds
const (
	NotificationAwaitingApproval = "awaiting_approval"
	NotificationApproved         = "approved"
	NotificationRejected         = "rejected"
	NotificationFullyReceived    = "fully_received"
)

// Notification tells users that an order they care about changed status
type Notification struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Recipients  []string  `json:"recipients"`
	Kind        string    `json:"kind"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifiers fans a notification out to several channels
type Notifiers []Notifier

// Notify implements Notifier; every channel is tried and errors are joined
func (ns Notifiers) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StatusNotificationHandler notifies approvers and order authors of status changes
type StatusNotificationHandler struct {
	ladder   *trade.ApprovalLadder
	notifier Notifier
	logger   *zap.Logger
}

// NewStatusNotificationHandler creates a new handler for status notifications
func NewStatusNotificationHandler(ladder *trade.ApprovalLadder, notifier Notifier, logger *zap.Logger) *StatusNotificationHandler {
	return &StatusNotificationHandler{
		ladder:   ladder,
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StatusNotificationHandler) EventTypes() []string {
	return []string{
		trade.EventTypePurchaseOrderSubmitted,
		trade.EventTypePurchaseOrderApproved,
		trade.EventTypePurchaseOrderRejected,
		trade.EventTypePurchaseOrderFullyReceived,
	}
}

// Handle processes a purchase order status event
func (h *StatusNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var n Notification
	switch e := event.(type) {
	case *trade.PurchaseOrderSubmittedEvent:
		if len(e.RequiredLevels) == 0 {
			return nil
		}
		n = h.awaiting(e.OrderID, e.OrderNumber, e.RequiredLevels[0])
	case *trade.PurchaseOrderApprovedEvent:
		if e.FullyApproved {
			n = Notification{
				Recipients:  []string{e.CreatedBy},
				Kind:        NotificationApproved,
				OrderID:     e.OrderID,
				OrderNumber: e.OrderNumber,
				Message:     fmt.Sprintf("Purchase order %s is fully approved", e.OrderNumber),
			}
		} else {
			n = h.awaiting(e.OrderID, e.OrderNumber, e.NextLevel)
		}
	case *trade.PurchaseOrderRejectedEvent:
		n = Notification{
			Recipients:  []string{e.CreatedBy},
			Kind:        NotificationRejected,
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			Message:     fmt.Sprintf("Purchase order %s was rejected at level %d: %s", e.OrderNumber, e.Level, e.Reason),
		}
	case *trade.PurchaseOrderFullyReceivedEvent:
		n = Notification{
			Recipients:  []string{e.CreatedBy},
			Kind:        NotificationFullyReceived,
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			Message:     fmt.Sprintf("All goods of purchase order %s have been received", e.OrderNumber),
		}
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	n.TenantID = event.TenantID()
	n.OccurredAt = event.OccurredAt()
	n.Recipients = compactRecipients(n.Recipients)
	if len(n.Recipients) == 0 {
		h.logger.Debug("no recipients for notification",
			zap.String("order_id", n.OrderID.String()),
			zap.String("kind", n.Kind),
		)
		return nil
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Warn("failed to deliver notification",
			zap.String("order_id", n.OrderID.String()),
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (h *StatusNotificationHandler) awaiting(orderID uuid.UUID, orderNumber string, levelNumber int) Notification {
	n := Notification{
		Kind:        NotificationAwaitingApproval,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Message:     fmt.Sprintf("Purchase order %s awaits your approval at level %d", orderNumber, levelNumber),
	}
	if level, ok := h.ladder.Level(levelNumber); ok {
		n.Recipients = level.Approvers
	}
	return n
}

func compactRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
