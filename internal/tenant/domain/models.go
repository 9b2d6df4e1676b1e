// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant represents an isolated customer partition of the asset store.
// ExternalOrgID maps the tenant to an organization inside the shared
// network-audit instance; tenants without a mapping are skipped by sync.
type Tenant struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Slug          string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	ExternalOrgID *string      `gorm:"column:external_org_id" json:"external_org_id"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// HasExternalOrg reports whether the tenant is mapped into the external
// inventory system.
func (t Tenant) HasExternalOrg() bool {
	return t.ExternalOrgID != nil && *t.ExternalOrgID != ""
}
