// Package domain contains persistence models for the asset service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Asset is one hardware asset owned by a tenant.
//
// Identity across syncs is serial-first: (tenant_id, serial_number) is
// unique whenever a serial is present. Rows without a serial fall back to
// name identity, enforced by a partial unique index on (tenant_id, name)
// WHERE serial_number IS NULL (created in the migrations; gorm tags cannot
// express the predicate).
type Asset struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_assets_tenant_serial,priority:1" json:"tenant_id"`

	// Sync-owned fields, overwritten on every merge.
	Name         string            `gorm:"type:text;not null" json:"name"`
	Category     string            `gorm:"type:text;not null" json:"category"`
	AssetType    string            `gorm:"type:text;column:asset_type" json:"asset_type"`
	Manufacturer *string           `gorm:"type:text" json:"manufacturer"`
	Model        *string           `gorm:"type:text" json:"model"`
	SerialNumber *string           `gorm:"type:text;uniqueIndex:ux_assets_tenant_serial,priority:2" json:"serial_number"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	Notes        string            `gorm:"type:text" json:"notes"`

	// User-owned fields, written on first insert only and never touched
	// by later syncs.
	Status         string     `gorm:"type:text;not null" json:"status"`
	AssignedTo     *string    `gorm:"type:text;column:assigned_to" json:"assigned_to"`
	Location       *string    `gorm:"type:text" json:"location"`
	PurchaseDate   *time.Time `gorm:"column:purchase_date" json:"purchase_date"`
	WarrantyExpiry *time.Time `gorm:"column:warranty_expiry" json:"warranty_expiry"`
	PurchaseCost   *float64   `gorm:"column:purchase_cost" json:"purchase_cost"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Asset) TableName() string { return "assets" }

// StatusInUse is the initial status of a synced asset. Later status changes
// belong to the user and are never overwritten by sync.
const StatusInUse = "in_use"

// CategoryHardware marks assets originating from the device inventory.
const CategoryHardware = "hardware"

// Draft is a canonical asset candidate produced by the device mapper,
// not yet resolved against the store.
type Draft struct {
	Name         string
	Category     string
	AssetType    string
	Manufacturer *string
	Model        *string
	SerialNumber *string
	Metadata     datatypes.JSONMap
	Notes        string
}

// HasSerial reports whether the draft carries a usable serial number.
func (d Draft) HasSerial() bool {
	return d.SerialNumber != nil && *d.SerialNumber != ""
}

// MergeResult reports what a single draft merge did to the store.
type MergeResult struct {
	Created bool
	Updated bool
}
