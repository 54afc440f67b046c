package persistence

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
)

// MemoryPurchaseOrderRepository keeps orders in process memory.
// Stored orders are copies, so callers never share state with the store.
type MemoryPurchaseOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*models.PurchaseOrderModel
}

// NewMemoryPurchaseOrderRepository creates an empty in-memory repository
func NewMemoryPurchaseOrderRepository() *MemoryPurchaseOrderRepository {
	return &MemoryPurchaseOrderRepository{
		orders: make(map[uuid.UUID]*models.PurchaseOrderModel),
	}
}

// Load returns a copy of the order and the version it was read at
func (r *MemoryPurchaseOrderRepository) Load(_ context.Context, tenantID, id uuid.UUID) (*trade.PurchaseOrder, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.orders[id]
	if !ok || m.TenantID != tenantID {
		return nil, 0, shared.ErrNotFound
	}
	return m.ToDomain(), m.Version, nil
}

// FindByOrderNumber finds a purchase order by order number for a tenant
func (r *MemoryPurchaseOrderRepository) FindByOrderNumber(_ context.Context, tenantID uuid.UUID, orderNumber string) (*trade.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m := r.byNumber(tenantID, orderNumber); m != nil {
		return m.ToDomain(), nil
	}
	return nil, shared.ErrNotFound
}

func (r *MemoryPurchaseOrderRepository) byNumber(tenantID uuid.UUID, orderNumber string) *models.PurchaseOrderModel {
	for _, m := range r.orders {
		if m.TenantID == tenantID && m.OrderNumber == orderNumber {
			return m
		}
	}
	return nil
}

// List returns one page of a tenant's orders and the total number of matches
func (r *MemoryPurchaseOrderRepository) List(_ context.Context, tenantID uuid.UUID, filter trade.PurchaseOrderFilter) ([]*trade.PurchaseOrder, int64, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	matched := make([]*models.PurchaseOrderModel, 0, len(r.orders))
	for _, m := range r.orders {
		if m.TenantID == tenantID && matchesFilter(m, filter) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(matched, resolveOrderSort(filter).compare)

	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.PageSize, len(matched))

	orders := make([]*trade.PurchaseOrder, 0, end-start)
	for _, m := range matched[start:end] {
		orders = append(orders, m.ToDomain())
	}
	return orders, total, nil
}

func matchesFilter(m *models.PurchaseOrderModel, filter trade.PurchaseOrderFilter) bool {
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, m.Status) {
		return false
	}
	if filter.SupplierID != nil && m.SupplierID != *filter.SupplierID {
		return false
	}
	if filter.WarehouseID != nil && (m.WarehouseID == nil || *m.WarehouseID != *filter.WarehouseID) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		return strings.Contains(strings.ToLower(m.OrderNumber), search) ||
			strings.Contains(strings.ToLower(m.SupplierName), search)
	}
	return true
}

// Create stores a new order
func (r *MemoryPurchaseOrderRepository) Create(_ context.Context, order *trade.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; ok {
		return shared.ErrAlreadyExists
	}
	if r.byNumber(order.TenantID, order.OrderNumber) != nil {
		return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Order number %s already exists", order.OrderNumber)
	}
	r.orders[order.ID] = models.PurchaseOrderModelFromDomain(order)
	return nil
}

// Save replaces the stored order when its version still equals expectedVersion
func (r *MemoryPurchaseOrderRepository) Save(_ context.Context, order *trade.PurchaseOrder, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok || stored.TenantID != order.TenantID {
		return shared.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
			"Purchase order %s was modified by another request", order.OrderNumber)
	}

	next := models.PurchaseOrderModelFromDomain(order)
	next.Version = expectedVersion + 1
	r.orders[order.ID] = next
	order.Version = next.Version
	return nil
}

// Delete removes an order of the tenant
func (r *MemoryPurchaseOrderRepository) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.orders[id]
	if !ok || m.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

// GenerateOrderNumber returns the next PO-YYYY-NNNNN number of the tenant
func (r *MemoryPurchaseOrderRepository) GenerateOrderNumber(_ context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("PO-%d-", time.Now().UTC().Year())

	r.mu.RLock()
	defer r.mu.RUnlock()

	last := ""
	for _, m := range r.orders {
		if m.TenantID == tenantID && strings.HasPrefix(m.OrderNumber, prefix) && m.OrderNumber > last {
			last = m.OrderNumber
		}
	}
	return nextOrderNumber(prefix, last), nil
}

// CountByStatus returns the number of orders per status for a tenant
func (r *MemoryPurchaseOrderRepository) CountByStatus(_ context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, m := range r.orders {
		if m.TenantID == tenantID {
			counts[string(m.Status)]++
		}
	}
	return counts, nil
}

// GetActiveTenantIDs returns every tenant that has at least one order
func (r *MemoryPurchaseOrderRepository) GetActiveTenantIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, m := range r.orders {
		if _, ok := seen[m.TenantID]; !ok {
			seen[m.TenantID] = struct{}{}
			ids = append(ids, m.TenantID)
		}
	}
	return ids, nil
}

var _ trade.PurchaseOrderRepository = (*MemoryPurchaseOrderRepository)(nil)
