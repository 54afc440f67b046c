// Package tenant keeps queries on tenant-owned tables scoped to one tenant.
//
// Repositories filter with Scope. A Guard registered on the GORM instance fails any
// query, update or delete on a guarded table that carries no tenant_id condition, so a
// forgotten filter surfaces as an error instead of a cross-tenant read.
//
// Usage:
//
//	db.Scopes(tenant.Scope(tenantID)).First(&order)
//	tenant.Unguarded(db).Table("purchase_orders").Distinct("tenant_id") // deliberate cross-tenant read
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant column of every guarded table
const Column = "tenant_id"

const skipGuardKey = "tenant:skip_guard"

// ErrTenantScopeMissing is returned when a statement on a guarded table has no tenant condition
var ErrTenantScopeMissing = errors.New("query on a tenant-owned table without a tenant_id condition")

// Scope filters the statement to one tenant
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  tenantID,
		})
	}
}

// Unguarded marks the statement as an intentional cross-tenant access
func Unguarded(db *gorm.DB) *gorm.DB {
	return db.Set(skipGuardKey, true)
}
