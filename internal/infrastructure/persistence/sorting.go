package persistence

import (
	"cmp"
	"strings"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/models"
)

const defaultOrderSortColumn = "created_at"

// orderSortColumns are the accepted order_by values. Each is a purchase_orders column,
// paired with the comparison the memory repository sorts with.
var orderSortColumns = map[string]func(a, b *models.PurchaseOrderModel) int{
	"id":            func(a, b *models.PurchaseOrderModel) int { return strings.Compare(a.ID.String(), b.ID.String()) },
	"created_at":    func(a, b *models.PurchaseOrderModel) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at":    func(a, b *models.PurchaseOrderModel) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"order_number":  func(a, b *models.PurchaseOrderModel) int { return cmp.Compare(a.OrderNumber, b.OrderNumber) },
	"supplier_name": func(a, b *models.PurchaseOrderModel) int { return cmp.Compare(a.SupplierName, b.SupplierName) },
	"status":        func(a, b *models.PurchaseOrderModel) int { return cmp.Compare(a.Status, b.Status) },
	"total":         func(a, b *models.PurchaseOrderModel) int { return a.Total.Cmp(b.Total) },
	"expected_delivery_date": func(a, b *models.PurchaseOrderModel) int {
		return compareOptionalTimes(a.ExpectedDeliveryDate, b.ExpectedDeliveryDate)
	},
	"submitted_at": func(a, b *models.PurchaseOrderModel) int { return compareOptionalTimes(a.SubmittedAt, b.SubmittedAt) },
	"approved_at":  func(a, b *models.PurchaseOrderModel) int { return compareOptionalTimes(a.ApprovedAt, b.ApprovedAt) },
}

// orderSort is a validated sort request. column is always a key of orderSortColumns.
type orderSort struct {
	column string
	desc   bool
}

// resolveOrderSort falls back to newest first for unknown columns; any direction but "asc" is descending
func resolveOrderSort(filter trade.PurchaseOrderFilter) orderSort {
	column := strings.TrimSpace(filter.OrderBy)
	if _, ok := orderSortColumns[column]; !ok {
		column = defaultOrderSortColumn
	}
	return orderSort{
		column: column,
		desc:   !strings.EqualFold(strings.TrimSpace(filter.OrderDir), "asc"),
	}
}

// orderBy is the SQL ORDER BY term
func (s orderSort) orderBy() string {
	if s.desc {
		return s.column + " DESC"
	}
	return s.column + " ASC"
}

// compare sorts like orderBy followed by id ascending
func (s orderSort) compare(a, b *models.PurchaseOrderModel) int {
	c := orderSortColumns[s.column](a, b)
	if s.desc {
		c = -c
	}
	if c == 0 {
		c = strings.Compare(a.ID.String(), b.ID.String())
	}
	return c
}

// compareOptionalTimes orders nil before any time
func compareOptionalTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
