package models

import (
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/google/uuid"
)

// RowColumns are the identity and audit columns of every mutable row
type RowColumns struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func rowColumnsOf(e shared.BaseEntity) RowColumns {
	return RowColumns{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func (c RowColumns) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// AggregateColumns are the columns of a tenant-owned aggregate root.
// Version is the compare-and-swap token written by Save.
type AggregateColumns struct {
	RowColumns
	Version   int       `gorm:"not null;default:1"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedBy string    `gorm:"type:varchar(100)"`
}

func aggregateColumnsOf(root shared.TenantAggregateRoot) AggregateColumns {
	return AggregateColumns{
		RowColumns: rowColumnsOf(root.BaseEntity),
		Version:    root.Version,
		TenantID:   root.TenantID,
		CreatedBy:  root.CreatedBy,
	}
}

// root rebuilds the aggregate header; pending events are never persisted
func (c AggregateColumns) root() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: c.entity(), Version: c.Version},
		TenantID:          c.TenantID,
		CreatedBy:         c.CreatedBy,
	}
}
