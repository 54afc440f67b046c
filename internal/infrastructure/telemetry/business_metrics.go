// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the purchase order lifecycle:
// creations, committed transitions, version conflicts, received units and open orders per status.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	orderCreatedTotal  *Counter
	orderAmountTotal   *Counter
	transitionTotal    *Counter
	conflictTotal      *Counter
	receivedUnitsTotal *Counter

	// Gauge metrics (point-in-time values)
	ordersByStatus *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	statsProvider OrderStatsProvider
}

// OrderStatsProvider provides order counts for periodic metrics collection.
type OrderStatsProvider interface {
	// CountByStatus returns the number of orders per status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StatsProvider   OrderStatsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		statsProvider: cfg.StatsProvider,
	}

	var err error
	if bm.orderCreatedTotal, err = NewCounter(cfg.Meter,
		"po_order_created_total", "Total number of purchase orders created", "{orders}"); err != nil {
		return nil, err
	}
	if bm.orderAmountTotal, err = NewCounter(cfg.Meter,
		"po_order_amount_total", "Total created order amount in minor units", "{cents}"); err != nil {
		return nil, err
	}
	if bm.transitionTotal, err = NewCounter(cfg.Meter,
		"po_transition_total", "Committed lifecycle transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if bm.conflictTotal, err = NewCounter(cfg.Meter,
		"po_concurrency_conflict_total", "Writes rejected by the optimistic lock", "{conflicts}"); err != nil {
		return nil, err
	}
	if bm.receivedUnitsTotal, err = NewCounter(cfg.Meter,
		"po_received_units_total", "Units recorded by the receiving ledger", "{units}"); err != nil {
		return nil, err
	}
	if bm.ordersByStatus, err = NewGauge(cfg.Meter,
		"po_orders_by_status", "Current number of purchase orders per status", "{orders}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderCreated records an order creation event.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, tenantID uuid.UUID) {
	bm.orderCreatedTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordOrderWithAmount records both order count and amount.
// The amount is recorded in minor units (×100).
func (bm *BusinessMetrics) RecordOrderWithAmount(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	bm.RecordOrderCreated(ctx, tenantID)
	bm.orderAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(),
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordTransition records a committed command and the status it produced.
func (bm *BusinessMetrics) RecordTransition(ctx context.Context, tenantID uuid.UUID, command, status string) {
	bm.transitionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCommand.String(command),
		AttrOrderStatus.String(status),
	)
}

// RecordConflict records a write rejected because the order changed concurrently.
func (bm *BusinessMetrics) RecordConflict(ctx context.Context, tenantID uuid.UUID, operation string) {
	bm.conflictTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCommand.String(operation),
	)
}

// RecordReceivedUnits records units applied by a receiving batch.
func (bm *BusinessMetrics) RecordReceivedUnits(ctx context.Context, tenantID uuid.UUID, units int64) {
	bm.receivedUnitsTotal.Add(ctx, units, AttrTenantID.String(tenantID.String()))
}

// RecordOrdersByStatus records the point-in-time count of orders in a status.
func (bm *BusinessMetrics) RecordOrdersByStatus(ctx context.Context, tenantID uuid.UUID, status string, count int64) {
	bm.ordersByStatus.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrOrderStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectOrderStats(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectOrderStats(ctx, tenantProvider)
		}
	}
}

func (bm *BusinessMetrics) collectOrderStats(ctx context.Context, tenantProvider TenantProvider) {
	if bm.statsProvider == nil {
		bm.logger.Debug("No order stats provider configured, skipping collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		counts, err := bm.statsProvider.CountByStatus(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to count orders for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for status, count := range counts {
			bm.RecordOrdersByStatus(ctx, tenantID, status, count)
		}
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Purchase order attribute keys
var (
	AttrCommand     = attribute.Key("po.command")
	AttrOrderStatus = attribute.Key("po.status")
)
