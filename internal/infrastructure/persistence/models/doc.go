// Package models contains the GORM persistence models of the purchase order engine.
// Domain types carry no ORM tags; mappers on each model convert in both directions.
//
//   - base.go: shared identity, version and tenant columns
//   - purchase_order.go: orders, lines, approval history and receiving ledger rows
//   - outbox.go: transactional outbox entries
package models

// All lists every model, in dependency order, for AutoMigrate in tests and the memory driver.
func All() []any {
	return []any{
		&PurchaseOrderModel{},
		&PurchaseOrderItemModel{},
		&PurchaseOrderApprovalModel{},
		&PurchaseOrderReceiptModel{},
		&OutboxEntryModel{},
	}
}
