package tenant

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard rejects unscoped statements on tenant-owned tables
type Guard struct {
	tables map[string]struct{}
}

// NewGuard creates a guard for the given tables
func NewGuard(tables ...string) *Guard {
	g := &Guard{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		g.tables[t] = struct{}{}
	}
	return g
}

// Register installs the guard before GORM's query, row, update and delete callbacks.
// Creates are not guarded: the tenant is part of the inserted row.
func (g *Guard) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:guard_query", g.check); err != nil {
		return fmt.Errorf("register tenant query guard: %w", err)
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:guard_row", g.check); err != nil {
		return fmt.Errorf("register tenant row guard: %w", err)
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:guard_update", g.check); err != nil {
		return fmt.Errorf("register tenant update guard: %w", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:guard_delete", g.check); err != nil {
		return fmt.Errorf("register tenant delete guard: %w", err)
	}
	return nil
}

func (g *Guard) check(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	if _, ok := g.tables[db.Statement.Table]; !ok {
		return
	}
	if skip, ok := db.Get(skipGuardKey); ok && skip == true {
		return
	}
	if hasTenantCondition(db.Statement) {
		return
	}
	_ = db.AddError(fmt.Errorf("%w: %s", ErrTenantScopeMissing, db.Statement.Table))
}

func hasTenantCondition(stmt *gorm.Statement) bool {
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if exprHasTenant(expr) {
					return true
				}
			}
		}
	}
	// raw SQL built by the caller
	return strings.Contains(stmt.SQL.String(), Column)
}

func exprHasTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return columnIsTenant(e.Column)
	case clause.IN:
		return columnIsTenant(e.Column)
	case clause.Expr:
		return strings.Contains(e.SQL, Column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, Column)
	case clause.AndConditions:
		for _, c := range e.Exprs {
			if exprHasTenant(c) {
				return true
			}
		}
	}
	// an OR can widen past the tenant, so it never counts
	return false
}

func columnIsTenant(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}
