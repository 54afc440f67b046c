package trade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/logger"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseOrderService handles purchase order business operations.
//
// Every command loads the order with its version, runs the command on the aggregate and saves
// it back with that version. A concurrent writer makes the save fail with CONCURRENCY_CONFLICT;
// the service returns that error and never retries.
type PurchaseOrderService struct {
	orderRepo       trade.PurchaseOrderRepository
	ladder          *trade.ApprovalLadder
	actors          ActorResolver
	eventPublisher  shared.EventPublisher
	idempotency     shared.IdempotencyStore
	idempotencyTTL  time.Duration
	businessMetrics *telemetry.BusinessMetrics
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(orderRepo trade.PurchaseOrderRepository, ladder *trade.ApprovalLadder, actors ActorResolver) *PurchaseOrderService {
	return &PurchaseOrderService{
		orderRepo:      orderRepo,
		ladder:         ladder,
		actors:         actors,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events after commit.
// Leave it unset when the repository writes events to the outbox.
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables idempotency keys on ReceiveItems
func (s *PurchaseOrderService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *PurchaseOrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ApprovalLadder returns the ladder the service decides with
func (s *PurchaseOrderService) ApprovalLadder() *trade.ApprovalLadder {
	return s.ladder
}

// Create creates a new draft purchase order
func (s *PurchaseOrderService) Create(ctx context.Context, tenantID uuid.UUID, actor ActorRef, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PurchaseOrderService", "Create")
	defer span.End()

	currency := valueobject.DefaultCurrency
	if req.Currency != "" {
		parsed, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeValidation, err.Error())
		}
		currency = parsed
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := trade.NewPurchaseOrder(tenantID, orderNumber, req.SupplierID, req.SupplierName, currency, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := order.UpdateHeader(trade.HeaderInput{
		WarehouseID:          req.WarehouseID,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		PaymentTerms:         &req.PaymentTerms,
		ShippingMethod:       &req.ShippingMethod,
		ShippingAddress:      &req.ShippingAddress,
		Remark:               &req.Remark,
	}); err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		if _, err := order.AddItem(item.toDomain()); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, order)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderWithAmount(ctx, tenantID, order.Total.Amount())
	}
	logger.L(ctx).Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.String()),
	)

	response := ToPurchaseOrderResponse(order, s.ladder)
	return &response, nil
}

// GetOrder returns the order snapshot. Reading never changes the order.
func (s *PurchaseOrderService) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, _, err := s.orderRepo.Load(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order, s.ladder)
	return &response, nil
}

// GetByOrderNumber retrieves a purchase order by order number
func (s *PurchaseOrderService) GetByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, tenantID, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order, s.ladder)
	return &response, nil
}

// List retrieves a list of purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, tenantID uuid.UUID, filter PurchaseOrderListFilter) ([]PurchaseOrderListItemResponse, int64, error) {
	domainFilter := trade.PurchaseOrderFilter{
		SupplierID:  filter.SupplierID,
		WarehouseID: filter.WarehouseID,
		Search:      strings.TrimSpace(filter.Search),
		Page:        filter.Page,
		PageSize:    filter.PageSize,
		OrderBy:     filter.OrderBy,
		OrderDir:    filter.OrderDir,
	}
	statuses := filter.Statuses
	if filter.Status != "" {
		statuses = append(statuses, filter.Status)
	}
	for _, raw := range statuses {
		status := trade.PurchaseOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
		if !status.IsValid() {
			return nil, 0, shared.NewDomainErrorf(shared.CodeValidation, "Unknown status %q", raw)
		}
		domainFilter.Statuses = append(domainFilter.Statuses, status)
	}

	orders, total, err := s.orderRepo.List(ctx, tenantID, domainFilter.Normalize())
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseOrderListItemResponses(orders), total, nil
}

// GetApprovalLadder returns the configured ladder
func (s *PurchaseOrderService) GetApprovalLadder() []ApprovalLevelResponse {
	return ToApprovalLevelResponses(s.ladder)
}

// GetAvailableActions lists the actions the caller may take on the order
func (s *PurchaseOrderService) GetAvailableActions(ctx context.Context, tenantID, orderID uuid.UUID, ref ActorRef) (*AvailableActionsResponse, error) {
	order, version, err := s.orderRepo.Load(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &AvailableActionsResponse{
		OrderID: order.ID,
		Status:  string(order.Status()),
		Version: version,
		Actions: order.AvailableActions(s.ladder, actor),
	}, nil
}

// Update updates the order header (draft or rejected only)
func (s *PurchaseOrderService) Update(ctx context.Context, tenantID, orderID uuid.UUID, req UpdatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.edit(ctx, tenantID, orderID, req.ExpectedVersion, "update", func(order *trade.PurchaseOrder) error {
		return order.UpdateHeader(trade.HeaderInput{
			SupplierID:           req.SupplierID,
			SupplierName:         req.SupplierName,
			WarehouseID:          req.WarehouseID,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			PaymentTerms:         req.PaymentTerms,
			ShippingMethod:       req.ShippingMethod,
			ShippingAddress:      req.ShippingAddress,
			Remark:               req.Remark,
		})
	})
}

// AddItem adds an item to a purchase order
func (s *PurchaseOrderService) AddItem(ctx context.Context, tenantID, orderID uuid.UUID, req AddPurchaseOrderItemRequest) (*PurchaseOrderResponse, error) {
	return s.edit(ctx, tenantID, orderID, req.ExpectedVersion, "add_item", func(order *trade.PurchaseOrder) error {
		_, err := order.AddItem(req.toDomain())
		return err
	})
}

// UpdateItem updates an item in a purchase order
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, tenantID, orderID, itemID uuid.UUID, req UpdatePurchaseOrderItemRequest) (*PurchaseOrderResponse, error) {
	return s.edit(ctx, tenantID, orderID, req.ExpectedVersion, "update_item", func(order *trade.PurchaseOrder) error {
		return order.UpdateItem(itemID, req.toDomain())
	})
}

// RemoveItem removes an item from a purchase order
func (s *PurchaseOrderService) RemoveItem(ctx context.Context, tenantID, orderID, itemID uuid.UUID, expectedVersion *int) (*PurchaseOrderResponse, error) {
	return s.edit(ctx, tenantID, orderID, expectedVersion, "remove_item", func(order *trade.PurchaseOrder) error {
		return order.RemoveItem(itemID)
	})
}

// Delete removes a draft or cancelled order
func (s *PurchaseOrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID) error {
	order, _, err := s.orderRepo.Load(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if !order.CanDelete() {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition, "Cannot delete order in %s status", order.Status())
	}
	return s.orderRepo.Delete(ctx, tenantID, orderID)
}

// Submit sends the order into the approval ladder
func (s *PurchaseOrderService) Submit(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req CommandRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.SubmitCommand{})
}

// Approve approves the order at the requested level
func (s *PurchaseOrderService) Approve(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req ApprovePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.ApproveCommand{Level: req.Level, Comment: req.Comment})
}

// Reject sends the order back to its author
func (s *PurchaseOrderService) Reject(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req RejectPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.RejectCommand{Reason: req.Reason})
}

// Dispatch marks the approved order as sent to the supplier
func (s *PurchaseOrderService) Dispatch(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req CommandRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.DispatchCommand{})
}

// ReceiveItems records a receiving batch.
// With an idempotency key, the key is claimed before the batch runs: a request that loses
// the claim returns the current order unchanged, and a failed batch gives the key back.
func (s *PurchaseOrderService) ReceiveItems(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req ReceivePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	key := ""
	if s.idempotency != nil && req.IdempotencyKey != "" {
		key = fmt.Sprintf("po:receive:%s:%s:%s", tenantID, orderID, req.IdempotencyKey)
		claimed, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			logger.L(ctx).Info("receiving batch already claimed",
				zap.String("order_id", orderID.String()),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
			return s.GetOrder(ctx, tenantID, orderID)
		}
	}

	response, err := s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, req.toCommand())
	if err != nil {
		if key != "" {
			if releaseErr := s.idempotency.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
				logger.L(ctx).Warn("failed to release idempotency key",
					zap.String("order_id", orderID.String()),
					zap.Error(releaseErr),
				)
			}
		}
		return nil, err
	}
	if s.businessMetrics != nil {
		var units int64
		for _, item := range req.Items {
			units += item.Quantity
		}
		s.businessMetrics.RecordReceivedUnits(ctx, tenantID, units)
	}
	return response, nil
}

// Cancel abandons the order before dispatch
func (s *PurchaseOrderService) Cancel(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req CancelPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.CancelCommand{Reason: req.Reason})
}

// Close finalizes a fully received order
func (s *PurchaseOrderService) Close(ctx context.Context, tenantID, orderID uuid.UUID, actor ActorRef, req CommandRequest) (*PurchaseOrderResponse, error) {
	return s.execute(ctx, tenantID, orderID, actor, req.ExpectedVersion, trade.CloseCommand{})
}

func (s *PurchaseOrderService) execute(ctx context.Context, tenantID, orderID uuid.UUID, ref ActorRef, expectedVersion *int, cmd trade.Command) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PurchaseOrderService", string(cmd.Kind()),
		telemetry.WithAttribute("order.id", orderID.String()),
	)
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	order, version, err := s.orderRepo.Load(ctx, tenantID, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := checkExpectedVersion(expectedVersion, version); err != nil {
		s.recordConflict(ctx, tenantID, string(cmd.Kind()))
		return nil, err
	}

	from := order.Status()
	if err := order.Execute(s.ladder, actor, cmd); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order, version, string(cmd.Kind())); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	to := order.Status()
	logger.L(ctx).Info("purchase order transition committed",
		zap.String("order_id", order.ID.String()),
		zap.String("command", string(cmd.Kind())),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor.ID),
		zap.Int("version", order.Version),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordTransition(ctx, tenantID, string(cmd.Kind()), string(to))
	}
	telemetry.SetOK(span)

	response := ToPurchaseOrderResponse(order, s.ladder)
	return &response, nil
}

func (s *PurchaseOrderService) edit(ctx context.Context, tenantID, orderID uuid.UUID, expectedVersion *int, operation string, fn func(*trade.PurchaseOrder) error) (*PurchaseOrderResponse, error) {
	order, version, err := s.orderRepo.Load(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkExpectedVersion(expectedVersion, version); err != nil {
		s.recordConflict(ctx, tenantID, operation)
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order, version, operation); err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order, s.ladder)
	return &response, nil
}

func (s *PurchaseOrderService) save(ctx context.Context, order *trade.PurchaseOrder, version int, operation string) error {
	if err := s.orderRepo.Save(ctx, order, version); err != nil {
		if shared.IsCode(err, shared.CodeConcurrencyConflict) {
			s.recordConflict(ctx, order.TenantID, operation)
			logger.L(ctx).Warn("purchase order changed concurrently",
				zap.String("order_id", order.ID.String()),
				zap.String("operation", operation),
				zap.Int("expected_version", version),
			)
		}
		return err
	}
	s.publish(ctx, order)
	return nil
}

// publish hands committed events to the in-process publisher, if one is set
func (s *PurchaseOrderService) publish(ctx context.Context, order *trade.PurchaseOrder) {
	events := order.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Error("failed to publish purchase order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *PurchaseOrderService) recordConflict(ctx context.Context, tenantID uuid.UUID, operation string) {
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConflict(ctx, tenantID, operation)
	}
}

func checkExpectedVersion(expected *int, actual int) error {
	if expected != nil && *expected != actual {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
			"Order is at version %d, expected %d; reload and retry", actual, *expected)
	}
	return nil
}
