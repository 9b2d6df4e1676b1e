package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   string
	Category string
}

type Repository interface {
	// UpsertBySerial inserts the asset or, when (tenant_id, serial_number)
	// already exists, overwrites its sync-owned columns. Atomic under the
	// composite unique index.
	UpsertBySerial(ctx context.Context, db *gorm.DB, asset *Asset) error

	// UpdateNamelessByName rewrites the sync-owned columns of an existing
	// row matching (tenant_id, name, serial IS NULL) and reports how many
	// rows it touched. Zero means the caller should insert instead.
	UpdateNamelessByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, draft Draft) (int64, error)

	Insert(ctx context.Context, db *gorm.DB, asset *Asset) error
	FindBySerial(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, serial string) (*Asset, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Asset, error)
	CountByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}
