package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/models"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPurchaseOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

func preloadChildren(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at ASC") }).
		Preload("Receipts", func(db *gorm.DB) *gorm.DB { return db.Order("received_at ASC") })
}

// Load finds an order of the tenant and returns the version it was read at
func (r *GormPurchaseOrderRepository) Load(ctx context.Context, tenantID, id uuid.UUID) (*trade.PurchaseOrder, int, error) {
	var model models.PurchaseOrderModel
	if err := preloadChildren(r.db.WithContext(ctx)).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, shared.ErrNotFound
		}
		return nil, 0, err
	}
	return model.ToDomain(), model.Version, nil
}

// FindByOrderNumber finds a purchase order by order number for a tenant
func (r *GormPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*trade.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := preloadChildren(r.db.WithContext(ctx)).
		Scopes(tenant.Scope(tenantID)).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of a tenant's orders and the total number of matches
func (r *GormPurchaseOrderRepository) List(ctx context.Context, tenantID uuid.UUID, filter trade.PurchaseOrderFilter) ([]*trade.PurchaseOrder, int64, error) {
	filter = filter.Normalize()
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}).Scopes(tenant.Scope(tenantID)),
		filter,
	)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.PurchaseOrderModel
	if err := r.applySort(query, filter).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*trade.PurchaseOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order, its lines and its pending events
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *trade.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(order)
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Order number %s already exists", order.OrderNumber)
			}
			return err
		}
		if err := saveChildren(tx, model); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, order)
	})
}

// Save persists the order with a compare-and-swap on its version.
// Lines are upserted and removed lines deleted; approval and receipt rows are insert-only.
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *trade.PurchaseOrder, expectedVersion int) error {
	nextVersion := expectedVersion + 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(order)
		model.Version = nextVersion

		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, expectedVersion).
			Updates(map[string]any{
				"supplier_id":            model.SupplierID,
				"supplier_name":          model.SupplierName,
				"warehouse_id":           model.WarehouseID,
				"expected_delivery_date": model.ExpectedDeliveryDate,
				"currency":               model.Currency,
				"subtotal":               model.Subtotal,
				"discount_total":         model.DiscountTotal,
				"tax_total":              model.TaxTotal,
				"total":                  model.Total,
				"status":                 model.Status,
				"current_approval_level": model.CurrentApprovalLevel,
				"payment_terms":          model.PaymentTerms,
				"shipping_method":        model.ShippingMethod,
				"shipping_address":       model.ShippingAddress,
				"remark":                 model.Remark,
				"submitted_at":           model.SubmittedAt,
				"submitted_by":           model.SubmittedBy,
				"approved_at":            model.ApprovedAt,
				"rejected_at":            model.RejectedAt,
				"reject_reason":          model.RejectReason,
				"dispatched_at":          model.DispatchedAt,
				"dispatched_by":          model.DispatchedBy,
				"cancelled_at":           model.CancelledAt,
				"cancel_reason":          model.CancelReason,
				"closed_at":              model.ClosedAt,
				"version":                nextVersion,
				"updated_at":             model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missOrConflict(tx, order)
		}

		if err := r.deleteRemovedItems(tx, order); err != nil {
			return err
		}
		if err := saveChildren(tx, model); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, order)
	})
	if err != nil {
		return err
	}
	order.Version = nextVersion
	return nil
}

func (r *GormPurchaseOrderRepository) missOrConflict(tx *gorm.DB, order *trade.PurchaseOrder) error {
	var count int64
	if err := tx.Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND tenant_id = ?", order.ID, order.TenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
		"Purchase order %s was modified by another request", order.OrderNumber)
}

func (r *GormPurchaseOrderRepository) deleteRemovedItems(tx *gorm.DB, order *trade.PurchaseOrder) error {
	query := tx.Where("order_id = ?", order.ID)
	if len(order.Items) > 0 {
		ids := make([]uuid.UUID, len(order.Items))
		for i := range order.Items {
			ids[i] = order.Items[i].ID
		}
		query = query.Where("id NOT IN ?", ids)
	}
	return query.Delete(&models.PurchaseOrderItemModel{}).Error
}

func saveChildren(tx *gorm.DB, model *models.PurchaseOrderModel) error {
	if len(model.Items) > 0 {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model.Items).Error; err != nil {
			return fmt.Errorf("failed to save order lines: %w", err)
		}
	}
	if len(model.Approvals) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Approvals).Error; err != nil {
			return fmt.Errorf("failed to append approval history: %w", err)
		}
	}
	if len(model.Receipts) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Receipts).Error; err != nil {
			return fmt.Errorf("failed to append receiving ledger: %w", err)
		}
	}
	return nil
}

func (r *GormPurchaseOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, order *trade.PurchaseOrder) error {
	events := order.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// Delete removes an order of the tenant together with its child rows
func (r *GormPurchaseOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(tenant.Scope(tenantID)).Where("id = ?", id).Delete(&models.PurchaseOrderModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		for _, child := range []any{
			&models.PurchaseOrderItemModel{},
			&models.PurchaseOrderApprovalModel{},
			&models.PurchaseOrderReceiptModel{},
		} {
			if err := tx.Where("order_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GenerateOrderNumber generates a unique order number for a tenant
// Format: PO-YYYY-NNNNN (e.g., PO-2026-00001)
func (r *GormPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("PO-%d-", time.Now().UTC().Year())

	var last string
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &last).Error
	if err != nil {
		return "", err
	}

	return nextOrderNumber(prefix, last), nil
}

func nextOrderNumber(prefix, last string) string {
	next := int64(1)
	if seq, ok := strings.CutPrefix(last, prefix); ok {
		if n, err := strconv.ParseInt(seq, 10, 64); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next)
}

func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter trade.PurchaseOrderFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(supplier_name) LIKE ?", pattern, pattern)
	}
	return query
}

func (r *GormPurchaseOrderRepository) applySort(query *gorm.DB, filter trade.PurchaseOrderFilter) *gorm.DB {
	return query.Order(resolveOrderSort(filter).orderBy()).Order("id ASC")
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ trade.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
