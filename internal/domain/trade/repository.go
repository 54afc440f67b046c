package trade

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderFilter narrows List results
type PurchaseOrderFilter struct {
	Statuses    []PurchaseOrderStatus
	SupplierID  *uuid.UUID
	WarehouseID *uuid.UUID
	Search      string
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
}

// Normalize applies paging defaults and bounds
func (f PurchaseOrderFilter) Normalize() PurchaseOrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

// Offset returns the number of rows to skip for the current page
func (f PurchaseOrderFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// PurchaseOrderRepository is the single persistence collaborator of the purchase order engine.
//
// Save is a compare-and-swap on the version: it fails with CONCURRENCY_CONFLICT when the stored
// version differs from expectedVersion and leaves the stored order untouched. Callers must reload
// and decide again; the repository never retries.
type PurchaseOrderRepository interface {
	// Load returns the order together with the version it was read at
	Load(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, int, error)

	// FindByOrderNumber finds a purchase order by order number for a tenant
	FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrder, error)

	// List returns one page of orders and the total number of matches
	List(ctx context.Context, tenantID uuid.UUID, filter PurchaseOrderFilter) ([]*PurchaseOrder, int64, error)

	// Create inserts a new order and its pending events
	Create(ctx context.Context, order *PurchaseOrder) error

	// Save persists the order if its stored version still equals expectedVersion.
	// On success order.Version is expectedVersion+1 and pending events are written to the outbox.
	Save(ctx context.Context, order *PurchaseOrder, expectedVersion int) error

	// Delete removes an order of the tenant
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// GenerateOrderNumber returns the next order number, formatted PO-YYYY-NNNNN
	GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
