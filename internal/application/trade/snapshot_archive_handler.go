package trade

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"go.uber.org/zap"
)

// SnapshotStore keeps finalized order documents
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, key string, body []byte) error
}

// SnapshotArchiveHandler archives the final snapshot of an order when it is closed
type SnapshotArchiveHandler struct {
	orderRepo trade.PurchaseOrderRepository
	ladder    *trade.ApprovalLadder
	store     SnapshotStore
	logger    *zap.Logger
}

// NewSnapshotArchiveHandler creates a new handler for closed orders
func NewSnapshotArchiveHandler(orderRepo trade.PurchaseOrderRepository, ladder *trade.ApprovalLadder, store SnapshotStore, logger *zap.Logger) *SnapshotArchiveHandler {
	return &SnapshotArchiveHandler{
		orderRepo: orderRepo,
		ladder:    ladder,
		store:     store,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *SnapshotArchiveHandler) EventTypes() []string {
	return []string{trade.EventTypePurchaseOrderClosed}
}

// Handle processes a PurchaseOrderClosedEvent
func (h *SnapshotArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	closed, ok := event.(*trade.PurchaseOrderClosedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypePurchaseOrderClosed),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypePurchaseOrderClosed, event.EventType())
	}

	order, _, err := h.orderRepo.Load(ctx, closed.TenantID(), closed.OrderID)
	if err != nil {
		return fmt.Errorf("load closed order %s: %w", closed.OrderNumber, err)
	}
	body, err := json.MarshalIndent(ToPurchaseOrderResponse(order, h.ladder), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := SnapshotKey(order)
	if err := h.store.PutSnapshot(ctx, key, body); err != nil {
		h.logger.Error("failed to archive purchase order snapshot",
			zap.String("order_id", order.ID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("purchase order snapshot archived",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("key", key),
	)
	return nil
}

// SnapshotKey is the object key of an archived order: purchase-orders/<tenant>/<year>/<number>.json
func SnapshotKey(order *trade.PurchaseOrder) string {
	year := order.CreatedAt.Year()
	if order.ClosedAt != nil {
		year = order.ClosedAt.Year()
	}
	return fmt.Sprintf("purchase-orders/%s/%d/%s.json", order.TenantID, year, order.OrderNumber)
}
