package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (id, name, slug, external_org_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.ExternalOrgID,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, external_org_id, created_at, updated_at
		 FROM tenants WHERE id = ?`,
		id,
	).Scan(&tenant).Error
	if err != nil {
		return nil, err
	}
	if tenant.ID == 0 {
		return nil, nil
	}
	return &tenant, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, external_org_id, created_at, updated_at
		 FROM tenants
		 ORDER BY created_at ASC, id ASC`,
	).Scan(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repo) SetExternalOrgID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalOrgID string) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET external_org_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		externalOrgID,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
